package intake

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

// jobView is the public projection of a RelayJob. It deliberately omits the
// attested payload and internal counters (pollAttempts, retryCount) — those
// are operational detail, not something a caller polling for status needs.
type jobView struct {
	TxHash       string `json:"txHash"`
	SourceDomain int    `json:"sourceDomain"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	DestTxHash   string `json:"destTxHash,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	AttestedAt  *time.Time `json:"attestedAt,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

func newJobView(job *store.RelayJob) jobView {
	return jobView{
		TxHash:       job.TxHash,
		SourceDomain: job.SourceDomain,
		Status:       string(job.Status),
		Outcome:      string(job.Outcome),
		ErrorMessage: job.ErrorMessage,
		DestTxHash:   job.DestTxHash,
		CreatedAt:    job.CreatedAt,
		AttestedAt:   job.AttestedAt,
		SubmittedAt:  job.SubmittedAt,
		ConfirmedAt:  job.ConfirmedAt,
	}
}

// createResponse is the wire shape of POST /relay, both for a freshly
// admitted job and for the idempotent replay of an already-known one.
type createResponse struct {
	TxHash  string `json:"txHash"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func newCreateResponse(job *store.RelayJob, message string) createResponse {
	return createResponse{
		TxHash:  job.TxHash,
		Status:  string(job.Status),
		Message: message,
	}
}

// healthResponse is the wire shape of GET /health.
type healthResponse struct {
	Status string             `json:"status"`
	Jobs   store.StatusCounts `json:"jobs,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
