package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		job  *RelayJob
	}{
		{
			name: "minimal pending job",
			job:  &RelayJob{TxHash: "0xaaaa", SourceDomain: 3, Status: StatusPending},
		},
		{
			name: "different source domain",
			job:  &RelayJob{TxHash: "0xbbbb", SourceDomain: 7, Status: StatusPending},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, tc.job))

			got, err := s.Get(ctx, tc.job.TxHash)
			require.NoError(t, err)
			assert.Equal(t, tc.job.SourceDomain, got.SourceDomain)
			assert.Equal(t, StatusPending, got.Status)
			assert.False(t, got.CreatedAt.IsZero())
			assert.Equal(t, got.CreatedAt, got.UpdatedAt)
		})
	}
}

func TestCreateConflictIsIdempotentReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &RelayJob{TxHash: "0xcccc", SourceDomain: 3, Status: StatusPending}
	require.NoError(t, s.Create(ctx, job))

	before, err := s.Get(ctx, job.TxHash)
	require.NoError(t, err)

	second := &RelayJob{TxHash: "0xcccc", SourceDomain: 99, Status: StatusPending}
	err = s.Create(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)

	after, err := s.Get(ctx, job.TxHash)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 3, after.SourceDomain, "second create must not mutate the existing row")
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "0xdoesnotexist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRefreshesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &RelayJob{TxHash: "0xdddd", SourceDomain: 3, Status: StatusPending}
	require.NoError(t, s.Create(ctx, job))
	before, err := s.Get(ctx, job.TxHash)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, job.TxHash, map[string]interface{}{"status": StatusPolling}))

	after, err := s.Get(ctx, job.TxHash)
	require.NoError(t, err)
	assert.Equal(t, StatusPolling, after.Status)
	assert.True(t, !after.UpdatedAt.Before(before.UpdatedAt))
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), "0xmissing", map[string]interface{}{"status": StatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByStatusOrdersOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x1", SourceDomain: 1, Status: StatusPending}))
	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x2", SourceDomain: 1, Status: StatusPending}))
	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x3", SourceDomain: 1, Status: StatusPolling}))

	jobs, err := s.ListByStatus(ctx, []Status{StatusPending, StatusPolling}, 20)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "0x1", jobs[0].TxHash)
	assert.Equal(t, "0x2", jobs[1].TxHash)
	assert.Equal(t, "0x3", jobs[2].TxHash)
}

func TestOldestByStatusNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.OldestByStatus(context.Background(), StatusAttested)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x1", SourceDomain: 1, Status: StatusPending}))
	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x2", SourceDomain: 1, Status: StatusPending}))
	require.NoError(t, s.Create(ctx, &RelayJob{TxHash: "0x3", SourceDomain: 1, Status: StatusConfirmed}))

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[StatusPending])
	assert.Equal(t, int64(1), counts[StatusConfirmed])
}
