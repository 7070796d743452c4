package intake

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/metrics"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

// createJob admits a new relay job. It is idempotent by txHash alone: a
// second submission of an already-known tx hash returns the existing job's
// current state rather than an error, so a caller that retries after a
// dropped response never double-enqueues a job.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSONBody(r, &req); err != nil {
		metrics.JobsIntakeRejected.WithLabelValues("invalid_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.sourceDomains[req.SourceDomain] {
		metrics.JobsIntakeRejected.WithLabelValues("unsupported_source_domain").Inc()
		writeError(w, http.StatusBadRequest, "unsupported source domain")
		return
	}

	txHash := strings.ToLower(req.TxHash)

	ctx := r.Context()
	existing, err := s.store.Get(ctx, txHash)
	if err == nil {
		writeJSON(w, http.StatusOK, newCreateResponse(existing, "job already exists"))
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.ErrorWithComponent(logger.Intake, "lookup job %s: %v", txHash, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	job := &store.RelayJob{
		TxHash:       txHash,
		SourceDomain: req.SourceDomain,
		Status:       store.StatusPending,
	}
	if err := s.store.Create(ctx, job); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race with a concurrent identical submission; the
			// row now exists, so hand back its current state.
			created, getErr := s.store.Get(ctx, txHash)
			if getErr == nil {
				writeJSON(w, http.StatusOK, newCreateResponse(created, "job already exists"))
				return
			}
		}
		s.logger.ErrorWithComponent(logger.Intake, "create job %s: %v", txHash, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.JobsIntaken.Inc()
	writeJSON(w, http.StatusCreated, newCreateResponse(job, "job admitted"))
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	txHash := strings.ToLower(chi.URLParam(r, "txHash"))

	job, err := s.store.Get(r.Context(), txHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.ErrorWithComponent(logger.Intake, "get job %s: %v", txHash, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job))
}

// health also refreshes the pending-jobs gauge, since it already pays for a
// CountByStatus query and a liveness probe hits this endpoint far more
// reliably than any internal ticker would.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "unhealthy"})
		return
	}
	counts, err := s.store.CountByStatus(r.Context())
	if err != nil {
		s.logger.ErrorWithComponent(logger.Intake, "count jobs by status: %v", err)
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}
	for status, count := range counts {
		if status == store.StatusConfirmed || status == store.StatusFailed {
			continue
		}
		metrics.PendingJobs.WithLabelValues(string(status)).Set(float64(count))
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Jobs: counts})
}
