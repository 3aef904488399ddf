package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/smart-inventory/api/responses"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	pkgredis "github.com/angelmondragon/smart-inventory/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request keeps its key pending.
	inFlightTTL = 2 * time.Minute

	pendingMarker = "pending"
	inventoryBase = "/api/v1/inventory"
)

type idempotencyRule struct {
	method   string
	pattern  string
	prefix   bool
	critical bool
}

var idempotencyRules = []idempotencyRule{
	// stock movements
	{method: http.MethodPost, pattern: inventoryBase + "/{productId}/reserve", critical: true},
	{method: http.MethodPost, pattern: inventoryBase + "/{productId}/release", critical: true},
	{method: http.MethodPost, pattern: inventoryBase + "/{productId}/confirm", critical: true},
	// admin changes
	{method: http.MethodPatch, pattern: inventoryBase + "/{productId}"},
	{method: http.MethodPut, pattern: inventoryBase + "/{productId}/", prefix: true},
	{method: http.MethodPost, pattern: inventoryBase + "/reorders/trigger"},
	// collaborator events
	{method: http.MethodPost, pattern: inventoryBase + "/{productId}/sales-logs"},
}

func (rule idempotencyRule) matches(method, pattern string) bool {
	if rule.method != method {
		return false
	}
	if rule.prefix {
		return strings.HasPrefix(pattern, rule.pattern)
	}
	return pattern == rule.pattern
}

type idempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// mutating inventory routes. Stock movements are remembered for seven days,
// other changes for standardTTL (24h when zero). A key whose first request is
// still running answers 409; server failures release the key so the client
// can retry with it.
func Idempotency(store pkgredis.IdempotencyStore, standardTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if standardTTL <= 0 {
		standardTTL = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, ok := routeTTL(r.Method, routePattern(r), standardTTL)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idempotencyKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			requestHash := hashBody(body)

			key := store.IdempotencyKey(r.Method+"|"+r.URL.Path, idempotencyKey)
			existing, claimed, err := store.Claim(ctx, key, pendingMarker, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				replay(ctx, logg, w, existing, requestHash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.statusCode() >= http.StatusInternalServerError {
				if err := store.Forget(ctx, key); err != nil {
					logError(ctx, logg, "idempotency.release_failed", err)
				}
				return
			}

			payload, err := json.Marshal(idempotencyRecord{
				Status:      rec.statusCode(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				RequestHash: requestHash,
			})
			if err == nil {
				err = store.Store(ctx, key, string(payload), ttl)
			}
			if err != nil {
				logError(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	if stored == pendingMarker {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			if len(pattern) > 1 {
				pattern = strings.TrimSuffix(pattern, "/")
			}
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string, standard time.Duration) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if !rule.matches(method, pattern) {
			continue
		}
		if rule.critical {
			return criticalIdempotencyTTL, true
		}
		return standard, true
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
