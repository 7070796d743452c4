// Package submitter sequentially submits attested jobs to the destination
// ledger, waits for confirmation, classifies the outcome, and applies the
// retry policy. Exactly one submission is ever in flight, so the signer's
// nonce is tracked with a plain counter rather than a concurrent
// per-chain nonce manager.
package submitter

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/metrics"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

const gasSafetyMarginPercent = 20

// minPollInterval is the floor on the sleep between submitter loop iterations.
const minPollInterval = time.Second

// Submitter is the strictly sequential destination-submission loop.
type Submitter struct {
	store  *store.Store
	client *destClient
	logger logger.Logger

	relayFee     *big.Int
	maxRetries   int
	pollInterval time.Duration
}

// New builds a Submitter bound to a single destination chain and contract.
func New(ctx context.Context, s *store.Store, rpcURL, transmitterAddress, privateKeyHex string, relayFee int64, maxRetries int, pollInterval time.Duration, logg logger.Logger) (*Submitter, error) {
	if logg == nil {
		logg = &logger.EmptyLogger{}
	}
	client, err := newDestClient(ctx, rpcURL, transmitterAddress, privateKeyHex)
	if err != nil {
		return nil, err
	}
	return &Submitter{
		store:        s,
		client:       client,
		logger:       logg,
		relayFee:     big.NewInt(relayFee),
		maxRetries:   maxRetries,
		pollInterval: clampPollInterval(pollInterval),
	}, nil
}

// clampPollInterval enforces the floor on the submitter loop's sleep, so a
// misconfigured SUBMITTER_POLL_INTERVAL_MS can't spin the loop into a tight
// retry storm against the destination RPC.
func clampPollInterval(d time.Duration) time.Duration {
	if d < minPollInterval {
		return minPollInterval
	}
	return d
}

// Run recovers any jobs stranded in `submitted` from a prior crash, then
// loops submitting the oldest `attested` job until ctx is cancelled.
func (s *Submitter) Run(ctx context.Context) {
	s.logger.InfoWithComponent(logger.Submitter, "submitter started")

	if err := s.RecoverSubmitted(ctx); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "restart recovery: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoWithComponent(logger.Submitter, "submitter shutting down")
			return
		default:
		}

		job, err := s.store.OldestByStatus(ctx, store.StatusAttested)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
			continue
		}

		s.processJob(ctx, job)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Submitter) processJob(ctx context.Context, job *store.RelayJob) {
	metrics.SubmissionAttempts.Inc()
	start := time.Now()

	message, err := decodeHexField(job.AttestedMessage)
	if err != nil {
		s.terminalFail(ctx, job, "invalid stored attested message: "+err.Error())
		return
	}
	attestation, err := decodeHexField(job.Attestation)
	if err != nil {
		s.terminalFail(ctx, job, "invalid stored attestation: "+err.Error())
		return
	}

	// Step 1: dry-run. A revert here catches most terminal conditions
	// (already-settled transfer, already-consumed nonce, policy violations)
	// before spending a real fee.
	gasEstimate, err := s.simulate(ctx, message, attestation)
	if err != nil {
		s.classifyAndPersist(ctx, job, err.Error())
		return
	}

	// Step 2: broadcast with a fixed 20% safety margin over the simulated gas.
	tx, err := s.broadcast(ctx, message, attestation, gasEstimate)
	if err != nil {
		s.classifyAndPersist(ctx, job, err.Error())
		return
	}

	now := time.Now().UTC()
	if err := s.store.Update(ctx, job.TxHash, map[string]interface{}{
		"status":       store.StatusSubmitted,
		"dest_tx_hash": tx.Hash().Hex(),
		"submitted_at": &now,
	}); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "persist submitted job %s: %v", job.TxHash, err)
		return
	}

	// Step 3 & 4: await confirmation and classify.
	s.awaitAndFinalize(ctx, job.TxHash, tx.Hash())
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
}

// simulate performs the dry-run eth_call/fee-estimation step. A revert
// surfaces here as an error before anything is broadcast.
func (s *Submitter) simulate(ctx context.Context, message, attestation []byte) (uint64, error) {
	return s.client.estimateReceiveAndForward(ctx, message, attestation, s.relayFee)
}

func (s *Submitter) broadcast(ctx context.Context, message, attestation []byte, gasEstimate uint64) (*txSendResult, error) {
	gasLimit := gasEstimate + (gasEstimate*gasSafetyMarginPercent)/100

	auth := *s.client.auth
	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(s.client.nextNonce)
	auth.GasLimit = gasLimit

	tx, err := s.client.transmitter.ReceiveAndForward(&auth, message, attestation, s.relayFee)
	if err != nil {
		return nil, err
	}
	s.client.nextNonce++
	return &txSendResult{hash: tx.Hash()}, nil
}

type txSendResult struct {
	hash common.Hash
}

func (r *txSendResult) Hash() common.Hash { return r.hash }
