package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/palletflow/api/responses"
	pkgerrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/logger"
	pkgredis "github.com/angelmondragon/palletflow/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	// GRN updates touch the receiving register, so their keys live longer.
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// replayPolicy marks a mutating endpoint whose responses may be replayed for a
// repeated Idempotency-Key. Matching runs on the raw path: when this middleware
// executes inside a chi sub-router, the final route pattern is not yet known.
type replayPolicy struct {
	method string
	match  func(segments []string) bool
	ttl    time.Duration
}

var replayPolicies = []replayPolicy{
	{method: http.MethodPost, match: exactPath("api", "v1", "pipeline", "runs"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: exactPath("api", "v1", "rebuilds"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: palletAction("materialize"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: palletAction("grn-status"), ttl: criticalIdempotencyTTL},
}

type replayRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency replays the first stored response for a repeated Idempotency-Key
// on the endpoints in replayPolicies. Requests without the header pass through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			ttl, ok := policyFor(r.Method, r.URL.Path)
			if store == nil || key == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			storeKey := store.IdempotencyKey(r.Method+"|"+r.URL.Path, key)
			fingerprint := fingerprintOf(body)

			record, err := lookup(r.Context(), store, storeKey)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}
			if record != nil {
				if record.Fingerprint != fingerprint {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				replay(w, record)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusCode()
			if !storable(status) {
				return
			}
			remember(r.Context(), logg, store, storeKey, ttl, replayRecord{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			})
		})
	}
}

func policyFor(method, path string) (time.Duration, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, p := range replayPolicies {
		if p.method == method && p.match(segments) {
			return p.ttl, true
		}
	}
	return 0, false
}

func exactPath(want ...string) func([]string) bool {
	return func(segments []string) bool {
		if len(segments) != len(want) {
			return false
		}
		for i := range want {
			if segments[i] != want[i] {
				return false
			}
		}
		return true
	}
}

// palletAction matches /api/v1/pallets/{palletID}/<action>.
func palletAction(action string) func([]string) bool {
	return func(segments []string) bool {
		return len(segments) == 5 &&
			segments[0] == "api" && segments[1] == "v1" && segments[2] == "pallets" &&
			segments[3] != "" && segments[4] == action
	}
}

// storable reports whether a response may be replayed. Busy and failed runs are
// left for the client to retry.
func storable(status int) bool {
	return status < http.StatusInternalServerError && status != http.StatusConflict
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func lookup(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*replayRecord, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func remember(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, ttl time.Duration, record replayRecord) {
	payload, err := json.Marshal(record)
	if err == nil {
		_, err = store.SetNX(ctx, key, string(payload), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "idempotency_key", key), "idempotency.store_failed", err)
	}
}

func replay(w http.ResponseWriter, record *replayRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
