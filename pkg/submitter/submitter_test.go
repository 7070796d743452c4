package submitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampPollIntervalEnforcesFloor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"below floor", 100 * time.Millisecond, time.Second},
		{"at floor", time.Second, time.Second},
		{"above floor", 5 * time.Second, 5 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clampPollInterval(tc.in))
		})
	}
}
