package submitter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		terminal bool
	}{
		{"already settled", "execution reverted: transfer settled", true},
		{"used nonce", "execution reverted: already used nonce", true},
		{"invalid domain", "invalid destination domain 5", true},
		{"invalid caller", "invalid destination caller", true},
		{"invalid recipient", "invalid mint recipient", true},
		{"invalid fee", "execution reverted: invalid fee", true},
		{"case insensitive", "TRANSFER SETTLED", true},
		{"network error", "connection refused", false},
		{"out of gas", "out of gas", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.terminal, isTerminal(tc.errMsg))
		})
	}
}

func logWithTopic(topic common.Hash) *types.Log {
	return &types.Log{Topics: []common.Hash{topic}}
}

func TestClassifyLogsRelayed(t *testing.T) {
	outcome, recovered, ok := classifyLogs([]*types.Log{logWithTopic(topicRelayed)})
	assert.True(t, ok)
	assert.Equal(t, store.OutcomeForwarded, outcome)
	assert.False(t, recovered)
}

func TestClassifyLogsFallback(t *testing.T) {
	outcome, _, ok := classifyLogs([]*types.Log{logWithTopic(topicFallbackTriggered)})
	assert.True(t, ok)
	assert.Equal(t, store.OutcomeFallback, outcome)
}

func TestClassifyLogsOperatorRouted(t *testing.T) {
	outcome, _, ok := classifyLogs([]*types.Log{logWithTopic(topicOperatorRouted)})
	assert.True(t, ok)
	assert.Equal(t, store.OutcomeOperatorRouted, outcome)
}

func TestClassifyLogsRecoveredCoOccursWithRelayed(t *testing.T) {
	outcome, recovered, ok := classifyLogs([]*types.Log{
		logWithTopic(topicRelayed),
		logWithTopic(topicRecoveredFromConsumedNonce),
	})
	assert.True(t, ok)
	assert.Equal(t, store.OutcomeForwarded, outcome)
	assert.True(t, recovered)
}

func TestClassifyLogsUnknown(t *testing.T) {
	_, _, ok := classifyLogs([]*types.Log{logWithTopic(common.HexToHash("0xdead"))})
	assert.False(t, ok)
}
