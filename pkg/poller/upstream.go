package poller

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
)

// attestationMessage is one entry of the upstream's "messages" array.
type attestationMessage struct {
	Message     string `json:"message"`
	Attestation string `json:"attestation"`
	EventNonce  string `json:"eventNonce"`
	Status      string `json:"status"`
}

type attestationResponse struct {
	Messages []attestationMessage `json:"messages"`
}

// lookupOutcome is the classification of one upstream lookup, distinguishing
// "no error, but nothing to act on yet" outcomes from hard failures — the
// poller loop switches on this instead of inspecting HTTP status codes
// itself.
type lookupOutcome int

const (
	outcomeNotFound lookupOutcome = iota
	outcomeThrottled
	outcomeRetryLater
	outcomeStillPending
	outcomeAttested
)

type lookupResult struct {
	outcome     lookupOutcome
	message     []byte
	attestation string
	eventNonce  string
}

// upstreamClient talks to the attestation API. There is no batch, listing,
// or push endpoint — every job is polled independently.
type upstreamClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func newUpstreamClient(baseURL string, logg logger.Logger) *upstreamClient {
	return &upstreamClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logg,
	}
}

// lookup fetches the attestation status for one (sourceDomain, txHash) pair.
//
// Only the first entry of the "messages" array is ever consulted, even if the
// upstream returns several — this is a documented, accepted limitation (see
// the design notes), not an oversight.
func (c *upstreamClient) lookup(sourceDomain int, txHash string) (lookupResult, error) {
	endpoint := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseURL, sourceDomain, url.QueryEscape(txHash))

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return lookupResult{}, fmt.Errorf("attestation lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return lookupResult{outcome: outcomeNotFound}, nil
	case http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return lookupResult{outcome: outcomeThrottled}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return lookupResult{}, fmt.Errorf("attestation lookup: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("attestation lookup non-success status %d: %s", resp.StatusCode, string(body))
		return lookupResult{outcome: outcomeRetryLater}, nil
	}

	var parsed attestationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return lookupResult{}, fmt.Errorf("attestation lookup: decode response: %w", err)
	}

	if len(parsed.Messages) == 0 {
		return lookupResult{outcome: outcomeStillPending}, nil
	}

	first := parsed.Messages[0]
	if !strings.EqualFold(first.Status, "complete") || strings.EqualFold(first.Attestation, "PENDING") {
		return lookupResult{outcome: outcomeStillPending}, nil
	}

	messageBytes, err := decodeHex(first.Message)
	if err != nil {
		return lookupResult{}, fmt.Errorf("attestation lookup: decode message hex: %w", err)
	}

	return lookupResult{
		outcome:     outcomeAttested,
		message:     messageBytes,
		attestation: first.Attestation,
		eventNonce:  first.EventNonce,
	}, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string of length %d", len(s))
	}
	return hex.DecodeString(s)
}
