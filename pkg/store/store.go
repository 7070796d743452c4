package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/gorm/clause"
)

// Store is the durable, crash-safe RelayJob ledger. A single *gorm.DB backed
// by a WAL-journaled SQLite file gives it single-writer serialization for
// free: SQLite's own file lock plus one open connection is enough, since
// nothing else in this system writes to the file.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// New opens (creating if necessary) the SQLite database at path, enables WAL
// journaling, and runs the schema migration idempotently.
func New(path string, logg logger.Logger) (*Store, error) {
	if logg == nil {
		logg = &logger.EmptyLogger{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: get underlying sql.DB: %w", err)
	}
	// A single open connection matches the single-writer WAL model; reads
	// share that connection too, so every query is serialized through it.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&RelayJob{}); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	return &Store{db: db, log: logg}, nil
}

// Ping reports whether the store is reachable, for the health endpoint.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create inserts a new job. It fails with ErrConflict, without mutating
// anything, if a row with the same tx hash already exists — the caller
// (intake) is expected to have already checked via Get and treats a conflict
// here as a race it can retry as a Get.
func (s *Store) Create(ctx context.Context, job *RelayJob) error {
	now := job.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(job)
	if res.Error != nil {
		return fmt.Errorf("store: create job %s: %w", job.TxHash, res.Error)
	}

	// SQLite's DoNothing clause silently no-ops on a PK conflict instead of
	// erroring, so a zero RowsAffected means some other Create beat us to it.
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Get fetches a job by tx hash, or ErrNotFound.
func (s *Store) Get(ctx context.Context, txHash string) (*RelayJob, error) {
	var job RelayJob
	err := s.db.WithContext(ctx).First(&job, "tx_hash = ?", txHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get job %s: %w", txHash, err)
	}
	return &job, nil
}

// Update applies a partial set of column updates to a job and always
// refreshes updated_at, regardless of what the caller passed.
func (s *Store) Update(ctx context.Context, txHash string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&RelayJob{}).Where("tx_hash = ?", txHash).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("store: update job %s: %w", txHash, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStatus returns up to limit jobs in any of the given statuses, ordered
// oldest-first by createdAt. limit <= 0 means unbounded.
func (s *Store) ListByStatus(ctx context.Context, statuses []Status, limit int) ([]*RelayJob, error) {
	var jobs []*RelayJob
	q := s.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("store: list jobs by status: %w", err)
	}
	return jobs, nil
}

// OldestByStatus returns the single oldest job in the given status, or
// ErrNotFound if none exists.
func (s *Store) OldestByStatus(ctx context.Context, status Status) (*RelayJob, error) {
	jobs, err := s.ListByStatus(ctx, []Status{status}, 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs[0], nil
}

// CountByStatus tallies jobs per status, used by the health endpoint.
func (s *Store) CountByStatus(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.WithContext(ctx).Model(&RelayJob{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("store: count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("store: scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, nil
}
