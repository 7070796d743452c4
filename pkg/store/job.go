// Package store persists RelayJob rows durably behind the three long-lived
// loops (intake, poller, submitter). It is the only rendezvous point between
// them; nothing in this system communicates through an in-memory queue.
package store

import (
	"errors"
	"time"
)

// Status is the RelayJob lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPolling   Status = "polling"
	StatusAttested  Status = "attested"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Outcome classifies a confirmed job from the destination event logs.
type Outcome string

const (
	OutcomeForwarded      Outcome = "forwarded"
	OutcomeFallback       Outcome = "fallback"
	OutcomeOperatorRouted Outcome = "operator_routed"
)

// ErrNotFound is returned by Get when no row exists for the given tx hash.
var ErrNotFound = errors.New("store: job not found")

// ErrConflict is returned by Create when a row already exists for the tx hash.
var ErrConflict = errors.New("store: job already exists")

// RelayJob is the durable record of one burn-and-mint relay attempt, keyed by
// the lowercase-hex source transaction hash.
type RelayJob struct {
	TxHash       string `gorm:"primaryKey;column:tx_hash;type:varchar(66)"`
	SourceDomain int    `gorm:"column:source_domain;index"`
	Status       Status `gorm:"column:status;type:varchar(16);index"`

	AttestedMessage  string `gorm:"column:attested_message"`
	Attestation      string `gorm:"column:attestation"`
	AttestationNonce string `gorm:"column:attestation_nonce"`

	MintRecipient     string `gorm:"column:mint_recipient"`
	DestinationDomain int    `gorm:"column:destination_domain"`
	Amount            string `gorm:"column:amount"`

	DestTxHash      string `gorm:"column:dest_tx_hash"`
	DestBlockNumber uint64 `gorm:"column:dest_block_number"`

	Outcome      Outcome `gorm:"column:outcome;type:varchar(16)"`
	ErrorMessage string  `gorm:"column:error_message"`

	PollAttempts int `gorm:"column:poll_attempts"`
	RetryCount   int `gorm:"column:retry_count"`

	CreatedAt   time.Time  `gorm:"column:created_at;index"`
	AttestedAt  *time.Time `gorm:"column:attested_at"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName pins the GORM table name independent of struct renames.
func (RelayJob) TableName() string {
	return "relay_jobs"
}

// StatusCounts is a per-status tally used by the health endpoint.
type StatusCounts map[Status]int64
