package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRespectsBurst(t *testing.T) {
	b := New(3, 1)
	base := time.Now()
	b.now = func() time.Time { return base }

	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire(), "fourth immediate acquire should exhaust the burst")
}

func TestTryAcquireRefillsOverTime(t *testing.T) {
	b := New(1, 1)
	base := time.Now()
	b.now = func() time.Time { return base }

	require.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())

	b.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	assert.True(t, b.TryAcquire(), "one token should have refilled after 1.5s at 1/s")
}

func TestAcquireBlocksUntilRefill(t *testing.T) {
	b := New(1, 100)
	require.True(t, b.TryAcquire())

	start := time.Now()
	b.Acquire()
	assert.WithinDuration(t, start.Add(10*time.Millisecond), time.Now(), 30*time.Millisecond)
}
