package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/config"
	"github.com/AngelCh415/leadsync/internal/crm"
	"github.com/AngelCh415/leadsync/internal/inbox"
	"github.com/AngelCh415/leadsync/internal/observability"
	"github.com/AngelCh415/leadsync/internal/ratelimit"
	"github.com/AngelCh415/leadsync/internal/store"
	"github.com/AngelCh415/leadsync/internal/utils"
)

// Syncer is the cache side of the export source.
type Syncer interface {
	Refresh(ctx context.Context) (store.Snapshot, error)
	Latest() (store.Snapshot, bool)
}

// Limiters guard the public entry points. A nil limiter leaves its routes unguarded.
type Limiters struct {
	CRM         *ratelimit.Limiter
	AgentDetail *ratelimit.Limiter
	LogStream   *ratelimit.Limiter
	Messages    *ratelimit.Limiter
}

type Deps struct {
	Log        *zap.Logger
	Pipeline   *crm.Pipeline
	Syncer     Syncer
	Inbox      *inbox.Inbox
	Limiters   Limiters
	APIKey     string
	CORS       config.CORSConfig
	Collectors *observability.Collectors
	Gatherer   prometheus.Gatherer
}

type handlers struct {
	log   *zap.Logger
	p     *crm.Pipeline
	sync  Syncer
	inbox *inbox.Inbox
}

func NewRouter(d Deps) http.Handler {
	h := &handlers{log: d.Log, p: d.Pipeline, sync: d.Syncer, inbox: d.Inbox}
	limit := func(l *ratelimit.Limiter) func(http.Handler) http.Handler {
		return rateLimit(l, d.Collectors, d.Log)
	}
	auth := requireAPIKey(d.APIKey)

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	mux.Use(corsHandler(d.CORS))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", h.ready)
	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.With(auth).Post("/ingest/run", h.ingestRun)

	mux.Route("/api", func(r chi.Router) {
		r.With(limit(d.Limiters.CRM)).Get("/crm", h.crm)
		r.With(limit(d.Limiters.LogStream)).Get("/logs", h.logs)
		r.With(limit(d.Limiters.AgentDetail), auth).Get("/agents", h.listAgents)
		r.With(limit(d.Limiters.AgentDetail), auth).Get("/agents/{name}", h.agentDetail)
		r.With(limit(d.Limiters.Messages), auth).Get("/messages", h.listMessages)
		r.With(limit(d.Limiters.Messages), auth).Post("/messages", h.postMessage)
	})

	return mux
}
