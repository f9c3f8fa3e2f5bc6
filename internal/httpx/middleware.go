package httpx

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/config"
	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/observability"
	"github.com/AngelCh415/leadsync/internal/ratelimit"
)

const (
	headerAPIKey    = "X-Dashboard-Api-Key"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerRetry     = "Retry-After"
)

// rateLimit admits or rejects each request against l before anything else
// runs. A nil limiter disables the check. When the bucket store errors the
// request is let through and the failure logged.
func rateLimit(l *ratelimit.Limiter, obs *observability.Collectors, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ratelimit.ClientIdentity(r)
			res, err := l.Check(r.Context(), client)
			if err != nil {
				obs.RateLimitStoreError(l.Prefix())
				log.Error("rate limit store unavailable, admitting request",
					zap.String("limiter", l.Prefix()),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			obs.RateLimitDecision(l.Prefix(), res.Allowed)

			if !res.Allowed {
				log.Warn("rate limit exceeded",
					zap.String("limiter", l.Prefix()),
					zap.String("client", client),
					zap.Int("retry_after", res.RetryAfterSeconds))
				w.Header().Set(headerRetry, strconv.Itoa(res.RetryAfterSeconds))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			w.Header().Set(headerRemaining, strconv.Itoa(res.Remaining))
			w.Header().Set(headerReset, metrics.FormatISO(res.ResetAt))
			next.ServeHTTP(w, r)
		})
	}
}

// requireAPIKey checks the shared dashboard key from X-Dashboard-Api-Key or
// the token part of Authorization. An empty key disables the check.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presentedKey(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "Missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(headerAPIKey)); v != "" {
		return v
	}
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func corsHandler(cfg config.CORSConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.Handler(opts)
}
