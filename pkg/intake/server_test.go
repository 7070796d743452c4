package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return New(s, Config{
		Port:                 "0",
		SourceDomains:        map[int]bool{0: true, 1: true},
		RateLimitBurst:       100,
		RateLimitRefillPerIP: 100,
	}, nil)
}

const validTxHash = "0xab1234ef00000000000000000000000000000000000000000000000000000000"

func TestCreateJobAdmitsNewJob(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{TxHash: validTxHash, SourceDomain: 1})
	req := httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, validTxHash, resp.TxHash)
	assert.Equal(t, string(store.StatusPending), resp.Status)
	assert.Equal(t, "job admitted", resp.Message)
}

func TestCreateJobRejectsUnsupportedSourceDomain(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{TxHash: validTxHash, SourceDomain: 99})
	req := httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobRejectsMalformedTxHash(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{TxHash: "not-a-hash", SourceDomain: 1})
	req := httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobIsIdempotentByTxHash(t *testing.T) {
	srv := newTestServer(t)
	router := srv.router()

	body, _ := json.Marshal(createJobRequest{TxHash: validTxHash, SourceDomain: 1})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, second.Code)
	var resp createResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "job already exists", resp.Message)

	counts, err := srv.store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[store.StatusPending])
}

func TestGetJobReturnsNarrowProjection(t *testing.T) {
	srv := newTestServer(t)
	router := srv.router()

	body, _ := json.Marshal(createJobRequest{TxHash: validTxHash, SourceDomain: 1})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay/"+validTxHash, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pollAttempts")
	assert.NotContains(t, rec.Body.String(), "retryCount")
	assert.NotContains(t, rec.Body.String(), "attestedMessage")
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay/"+validTxHash, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthReportsHealthyWithCounts(t *testing.T) {
	srv := newTestServer(t)
	router := srv.router()

	body, _ := json.Marshal(createJobRequest{TxHash: validTxHash, SourceDomain: 1})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, int64(1), resp.Jobs[store.StatusPending])
}

func TestCreateJobThrottlesPerIP(t *testing.T) {
	s, err := store.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := New(s, Config{
		Port:                 "0",
		SourceDomains:        map[int]bool{1: true},
		RateLimitBurst:       1,
		RateLimitRefillPerIP: 0.001,
	}, nil)
	router := srv.router()

	makeReq := func(txHash string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(createJobRequest{TxHash: txHash, SourceDomain: 1})
		r := httptest.NewRequest(http.MethodPost, "/relay/", bytes.NewReader(body))
		r.RemoteAddr = "203.0.113.5:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	first := makeReq(validTxHash)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := makeReq("0xcd1234ef00000000000000000000000000000000000000000000000000000000")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestHealthAndGetJobAreThrottledPerIP(t *testing.T) {
	s, err := store.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := New(s, Config{
		Port:                 "0",
		SourceDomains:        map[int]bool{1: true},
		RateLimitBurst:       1,
		RateLimitRefillPerIP: 0.001,
	}, nil)
	router := srv.router()

	makeReq := func(method, path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, nil)
		r.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	first := makeReq(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, first.Code)

	second := makeReq(http.MethodGet, "/relay/"+validTxHash)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
