package submitter

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/metrics"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

const confirmationPollInterval = 5 * time.Second

func decodeHexField(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, fmt.Errorf("empty hex field")
	}
	return hex.DecodeString(s)
}

// terminalFail moves a job straight to failed without consulting the retry
// policy, used for defects that no resubmission could ever fix (a corrupt
// stored payload).
func (s *Submitter) terminalFail(ctx context.Context, job *store.RelayJob, reason string) {
	metrics.JobsFailed.WithLabelValues("corrupt_payload").Inc()
	if err := s.store.Update(ctx, job.TxHash, map[string]interface{}{
		"status":        store.StatusFailed,
		"error_message": reason,
	}); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "persist terminal failure for %s: %v", job.TxHash, err)
	}
}

// classifyAndPersist applies the retry policy to a submission-step error:
// a terminal contract rejection fails the job immediately, anything else
// increments retryCount and either re-queues into attested or fails once
// maxRetries is exhausted.
func (s *Submitter) classifyAndPersist(ctx context.Context, job *store.RelayJob, errMsg string) {
	if isTerminal(errMsg) {
		metrics.JobsFailed.WithLabelValues("terminal_rejection").Inc()
		if err := s.store.Update(ctx, job.TxHash, map[string]interface{}{
			"status":        store.StatusFailed,
			"error_message": errMsg,
		}); err != nil {
			s.logger.ErrorWithComponent(logger.Submitter, "persist terminal rejection for %s: %v", job.TxHash, err)
		}
		return
	}

	retryCount := job.RetryCount + 1
	fields := map[string]interface{}{
		"retry_count":   retryCount,
		"error_message": errMsg,
	}
	if retryCount >= s.maxRetries {
		fields["status"] = store.StatusFailed
		metrics.JobsFailed.WithLabelValues("max_retries_exceeded").Inc()
	} else {
		fields["status"] = store.StatusAttested
		metrics.SubmissionRetries.Inc()
	}
	if err := s.store.Update(ctx, job.TxHash, fields); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "persist retry state for %s: %v", job.TxHash, err)
	}
	if err := s.client.resyncNonce(ctx); err != nil {
		s.logger.NoticeWithComponent(logger.Submitter, "resync nonce after failed submission: %v", err)
	}
}

// awaitAndFinalize waits for the broadcast transaction to be mined, then
// classifies its outcome from the receipt's event logs and persists the
// confirmed state. A reverted receipt is handed to the retry policy instead.
func (s *Submitter) awaitAndFinalize(ctx context.Context, txHash string, destTx common.Hash) {
	receipt, err := s.waitMined(ctx, destTx)
	if err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "await confirmation for %s: %v", txHash, err)
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		job, getErr := s.store.Get(ctx, txHash)
		if getErr != nil {
			s.logger.ErrorWithComponent(logger.Submitter, "reload job %s after failed receipt: %v", txHash, getErr)
			return
		}
		s.classifyAndPersist(ctx, job, "destination transaction reverted")
		return
	}

	outcome, recovered, ok := classifyLogs(receipt.Logs)
	if recovered {
		s.logger.NoticeWithComponent(logger.Submitter, "job %s recovered a consumed nonce during submission", txHash)
	}
	if !ok {
		s.logger.ErrorWithComponent(logger.Submitter, "job %s confirmed but no recognized event was emitted", txHash)
		outcome = store.OutcomeForwarded
	}

	now := time.Now().UTC()
	if err := s.store.Update(ctx, txHash, map[string]interface{}{
		"status":            store.StatusConfirmed,
		"outcome":           outcome,
		"dest_block_number": receipt.BlockNumber.Uint64(),
		"confirmed_at":      &now,
	}); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "persist confirmed job %s: %v", txHash, err)
		return
	}
	metrics.JobsConfirmed.WithLabelValues(string(outcome)).Inc()
}

func (s *Submitter) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := s.client.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(confirmationPollInterval):
		}
	}
}

// RecoverSubmitted resolves every job stranded in `submitted` from a prior
// crash: if the destination transaction is confirmed it is classified and
// finalized as normal; if it is still pending it is awaited; if it was never
// mined (dropped from the mempool, or the process crashed before broadcast
// completed) its retryCount is incremented and it is requeued into attested,
// or failed once retryCount reaches maxRetries.
func (s *Submitter) RecoverSubmitted(ctx context.Context) error {
	jobs, err := s.store.ListByStatus(ctx, []store.Status{store.StatusSubmitted}, 0)
	if err != nil {
		return fmt.Errorf("submitter: list submitted jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	if err := s.client.resyncNonce(ctx); err != nil {
		return fmt.Errorf("submitter: resync nonce before recovery: %w", err)
	}

	for _, job := range jobs {
		s.recoverJob(ctx, job)
	}
	return nil
}

func (s *Submitter) recoverJob(ctx context.Context, job *store.RelayJob) {
	if job.DestTxHash == "" {
		s.requeueDropped(ctx, job, "no destination transaction was recorded before the crash")
		return
	}

	destTx := common.HexToHash(job.DestTxHash)
	receipt, err := s.client.eth.TransactionReceipt(ctx, destTx)
	if err == ethereum.NotFound {
		if _, _, pendingErr := s.client.eth.TransactionByHash(ctx, destTx); pendingErr == ethereum.NotFound {
			s.requeueDropped(ctx, job, "destination transaction was dropped from the mempool")
			return
		}
		s.logger.InfoWithComponent(logger.Submitter, "recovery: job %s still pending confirmation, awaiting", job.TxHash)
		s.awaitAndFinalize(ctx, job.TxHash, destTx)
		return
	}
	if err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "recovery: fetch receipt for %s: %v", job.TxHash, err)
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.classifyAndPersist(ctx, job, "destination transaction reverted")
		return
	}

	outcome, recovered, ok := classifyLogs(receipt.Logs)
	if recovered {
		s.logger.NoticeWithComponent(logger.Submitter, "job %s recovered a consumed nonce during submission", job.TxHash)
	}
	if !ok {
		outcome = store.OutcomeForwarded
	}
	now := time.Now().UTC()
	if err := s.store.Update(ctx, job.TxHash, map[string]interface{}{
		"status":            store.StatusConfirmed,
		"outcome":           outcome,
		"dest_block_number": receipt.BlockNumber.Uint64(),
		"confirmed_at":      &now,
	}); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "recovery: persist confirmed job %s: %v", job.TxHash, err)
		return
	}
	metrics.JobsConfirmed.WithLabelValues(string(outcome)).Inc()
}

func (s *Submitter) requeueDropped(ctx context.Context, job *store.RelayJob, reason string) {
	retryCount := job.RetryCount + 1
	fields := map[string]interface{}{
		"retry_count":   retryCount,
		"error_message": reason,
	}
	if retryCount >= s.maxRetries {
		fields["status"] = store.StatusFailed
		metrics.JobsFailed.WithLabelValues("max_retries_exceeded").Inc()
	} else {
		fields["status"] = store.StatusAttested
	}
	if err := s.store.Update(ctx, job.TxHash, fields); err != nil {
		s.logger.ErrorWithComponent(logger.Submitter, "recovery: requeue dropped job %s: %v", job.TxHash, err)
	}
}
