// Package poller advances jobs waiting for an attestation. It never
// communicates with the submitter directly — every transition is a store
// write, and the submitter picks up attested jobs independently.
package poller

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/relay-orchestrator/pkg/circuitbreaker"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/metrics"
	"github.com/speedrun-hq/relay-orchestrator/pkg/ratelimit"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
	"github.com/speedrun-hq/relay-orchestrator/pkg/validate"
)

const batchSize = 20

const (
	upstreamBreakerThreshold    = 5
	upstreamBreakerWindow       = 60 * time.Second
	upstreamBreakerResetTimeout = 30 * time.Second
)

// Poller drives the pending/polling -> attested|failed transition.
type Poller struct {
	store       *store.Store
	upstream    *upstreamClient
	limiter     *ratelimit.Bucket
	breaker     *circuitbreaker.CircuitBreaker
	logger      logger.Logger
	localDomain uint32
	router      common.Address

	cycleInterval      time.Duration
	attestationTimeout time.Duration

	throttledUntil time.Time
}

// New builds a Poller. limiter is shared with nothing else — it exists
// solely to keep this process under the upstream's undocumented rate ceiling.
// A circuit breaker sits alongside it: repeated upstream errors (as opposed
// to ordinary still-pending responses) trip it so a struggling attestation
// service doesn't get hammered every cycle.
func New(s *store.Store, baseURL string, limiter *ratelimit.Bucket, localDomain uint32, router common.Address, cycleInterval, attestationTimeout time.Duration, logg logger.Logger) *Poller {
	if logg == nil {
		logg = &logger.EmptyLogger{}
	}
	return &Poller{
		store:              s,
		upstream:           newUpstreamClient(baseURL, logg),
		limiter:            limiter,
		breaker:            circuitbreaker.NewCircuitBreaker(true, upstreamBreakerThreshold, upstreamBreakerWindow, upstreamBreakerResetTimeout),
		logger:             logg,
		localDomain:        localDomain,
		router:             router,
		cycleInterval:      cycleInterval,
		attestationTimeout: attestationTimeout,
	}
}

// Run loops until ctx is cancelled, checking the shutdown signal at the top
// of every cycle.
func (p *Poller) Run(ctx context.Context) {
	p.logger.InfoWithComponent(logger.Poller, "attestation poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.InfoWithComponent(logger.Poller, "attestation poller shutting down")
			return
		default:
		}

		p.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cycleInterval):
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) {
	if time.Now().Before(p.throttledUntil) {
		return
	}
	if p.breaker.IsOpen() {
		p.logger.NoticeWithComponent(logger.Poller, "upstream circuit open, skipping cycle")
		return
	}

	start := time.Now()
	defer func() { metrics.PollCycleDuration.Observe(time.Since(start).Seconds()) }()

	jobs, err := p.store.ListByStatus(ctx, []store.Status{store.StatusPending, store.StatusPolling}, batchSize)
	if err != nil {
		p.logger.ErrorWithComponent(logger.Poller, "list jobs by status: %v", err)
		return
	}

	for _, job := range jobs {
		if time.Now().Before(p.throttledUntil) {
			// A 429 mid-cycle aborts the rest of this cycle entirely; no
			// further job transitions happen until the backoff expires.
			return
		}
		p.processJob(ctx, job)
	}
}

func (p *Poller) processJob(ctx context.Context, job *store.RelayJob) {
	if time.Since(job.CreatedAt) > p.attestationTimeout {
		p.fail(ctx, job.TxHash, "attestation_timeout")
		metrics.JobsFailed.WithLabelValues("attestation_timeout").Inc()
		return
	}

	if job.Status == store.StatusPending {
		if err := p.store.Update(ctx, job.TxHash, map[string]interface{}{"status": store.StatusPolling}); err != nil {
			p.logger.ErrorWithComponent(logger.Poller, "transition %s to polling: %v", job.TxHash, err)
			return
		}
	}

	p.limiter.Acquire()
	metrics.PollAttempts.Inc()

	result, err := p.upstream.lookup(job.SourceDomain, job.TxHash)
	if err != nil {
		p.logger.ErrorWithComponent(logger.Poller, "lookup %s: %v", job.TxHash, err)
		p.breaker.RecordFailure()
		p.incrementPollAttempts(ctx, job.TxHash)
		return
	}

	switch result.outcome {
	case outcomeThrottled:
		p.throttledUntil = time.Now().Add(60 * time.Second)
		p.logger.NoticeWithComponent(logger.Poller, "upstream throttled, backing off for 60s")
		return
	case outcomeNotFound, outcomeRetryLater, outcomeStillPending:
		p.incrementPollAttempts(ctx, job.TxHash)
		return
	case outcomeAttested:
		p.handleAttested(ctx, job, result)
	}
}

func (p *Poller) handleAttested(ctx context.Context, job *store.RelayJob, result lookupResult) {
	parsed, err := validate.Message(result.message, p.localDomain, p.router)
	if err != nil {
		p.fail(ctx, job.TxHash, err.Error())
		metrics.JobsFailed.WithLabelValues("invalid_message").Inc()
		return
	}
	if parsed.DestinationCallerIsZero {
		p.logger.NoticeWithComponent(logger.Poller, "job %s has zero destinationCaller: exposed to front-running until submitted", job.TxHash)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"status":             store.StatusAttested,
		"attested_message":   "0x" + hex.EncodeToString(result.message),
		"attestation":        result.attestation,
		"attestation_nonce":  parsed.Nonce,
		"mint_recipient":     parsed.MintRecipient,
		"destination_domain": int(parsed.DestinationDomain),
		"amount":             parsed.Amount,
		"attested_at":        &now,
		"poll_attempts":      job.PollAttempts + 1,
	}
	if err := p.store.Update(ctx, job.TxHash, fields); err != nil {
		p.logger.ErrorWithComponent(logger.Poller, "persist attested job %s: %v", job.TxHash, err)
		return
	}
	metrics.JobsAttested.Inc()
}

func (p *Poller) incrementPollAttempts(ctx context.Context, txHash string) {
	job, err := p.store.Get(ctx, txHash)
	if err != nil {
		return
	}
	_ = p.store.Update(ctx, txHash, map[string]interface{}{"poll_attempts": job.PollAttempts + 1})
}

func (p *Poller) fail(ctx context.Context, txHash, reason string) {
	if err := p.store.Update(ctx, txHash, map[string]interface{}{
		"status":        store.StatusFailed,
		"error_message": reason,
	}); err != nil {
		p.logger.ErrorWithComponent(logger.Poller, "mark job %s failed: %v", txHash, err)
	}
}
