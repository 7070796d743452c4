package submitter

import (
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

// terminalSubstrings is the closed set of revert-reason fragments that signal
// a permanent contract-layer rejection. Any other failure is transient.
var terminalSubstrings = []string{
	"already settled",
	"transfer settled",
	"already used nonce",
	"nonce already used",
	"invalid destination domain",
	"invalid destination caller",
	"invalid mint recipient",
	"invalid fee",
}

// isTerminal reports whether a submission failure message matches the closed
// terminal substring set. Matching is case-insensitive.
func isTerminal(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, s := range terminalSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// classifyLogs derives a job's outcome from its confirmation receipt's event
// logs by matching topic[0] literally against the four known signatures.
// RecoveredFromConsumedNonce may co-occur with any other event; it never
// changes the outcome, only triggers an informational log line at the
// caller.
func classifyLogs(logs []*types.Log) (outcome store.Outcome, recoveredFromConsumedNonce bool, ok bool) {
	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case topicRelayed:
			outcome, ok = store.OutcomeForwarded, true
		case topicFallbackTriggered:
			outcome, ok = store.OutcomeFallback, true
		case topicOperatorRouted:
			outcome, ok = store.OutcomeOperatorRouted, true
		case topicRecoveredFromConsumedNonce:
			recoveredFromConsumedNonce = true
		}
	}
	return outcome, recoveredFromConsumedNonce, ok
}
