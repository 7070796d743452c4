package intake

import (
	"net"
	"net/http"
	"sync"

	"github.com/speedrun-hq/relay-orchestrator/pkg/ratelimit"
)

// perIPThrottle gives each remote address its own token bucket so one caller
// hammering the intake endpoint cannot starve the others. Buckets are created
// lazily and kept for the process lifetime; this system's intake traffic is
// low-cardinality enough that unbounded growth is not a practical concern.
type perIPThrottle struct {
	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
	burst   float64
	refill  float64
}

func newPerIPThrottle(burst, refillPerSecond float64) *perIPThrottle {
	return &perIPThrottle{
		buckets: make(map[string]*ratelimit.Bucket),
		burst:   burst,
		refill:  refillPerSecond,
	}
}

func (t *perIPThrottle) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	t.mu.Lock()
	bucket, ok := t.buckets[host]
	if !ok {
		bucket = ratelimit.New(t.burst, t.refill)
		t.buckets[host] = bucket
	}
	t.mu.Unlock()

	return bucket.TryAcquire()
}

func (t *perIPThrottle) middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.allow(r.RemoteAddr) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
