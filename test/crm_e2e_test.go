package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/agents"
	"github.com/AngelCh415/leadsync/internal/config"
	"github.com/AngelCh415/leadsync/internal/crm"
	"github.com/AngelCh415/leadsync/internal/httpx"
	"github.com/AngelCh415/leadsync/internal/inbox"
	"github.com/AngelCh415/leadsync/internal/ingest"
	"github.com/AngelCh415/leadsync/internal/jobs"
	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/models"
	"github.com/AngelCh415/leadsync/internal/ratelimit"
	"github.com/AngelCh415/leadsync/internal/store"
	"github.com/AngelCh415/leadsync/internal/utils"
)

const sheet = "\ufeffDate Added,Business Name,Contact Name,Status,Priority,Follow-up Date,Notes\n" +
	"2025.03.13,Glow Salon,Ana,Proposal sent,Medium,2025-03-20,Pitch deck\n" +
	"2025-03-02,Cut & Co,Ben,Signed,High,,\n" +
	",,,Contacted,,,\n"

// stack wires the server the way main does, with a redis bucket store and a
// short cache so the poll job and the request path share one snapshot.
func stack(t *testing.T, upstream string, max int) (*httptest.Server, *jobs.CRMPollJob) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	log := zap.NewNop()
	src := ingest.NewSource(ingest.NewFetcher(ingest.NewHTTPClient(2*time.Second), upstream, nil),
		store.NewMemoryStore(), time.Minute, log)
	svc := metrics.NewService()
	roster, err := agents.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	buckets := ratelimit.NewRedisStore(rdb)
	crmLimiter, err := ratelimit.New(ratelimit.Config{MaxRequests: max, Window: time.Minute, Prefix: "crm"}, buckets)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}

	srv := httptest.NewServer(httpx.NewRouter(httpx.Deps{
		Log:      log,
		Pipeline: crm.New(src, svc, agents.NewProjector(roster, svc), log),
		Syncer:   src,
		Inbox:    inbox.New(inbox.WithSeed()),
		Limiters: httpx.Limiters{CRM: crmLimiter},
		CORS:     config.CORSConfig{},
	}))
	t.Cleanup(srv.Close)

	return srv, jobs.NewCRMPollJob(src, utils.NewBackoff(time.Millisecond, 2), log, 5*time.Second)
}

func TestPollWarmsCacheForRequests(t *testing.T) {
	var fetches atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first attempt fails, the poller retries
		if fetches.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sheet))
	}))
	defer up.Close()

	srv, poll := stack(t, up.URL, 10)
	if err := poll.RunContext(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected 2 upstream fetches, got %d", got)
	}

	resp, err := http.Get(srv.URL + "/api/crm")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fetches.Load() != 2 {
		t.Fatalf("request should be served from the warm cache")
	}

	var payload models.CrmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Metrics.TotalLeads != 2 || payload.Metrics.ActiveClients != 1 || payload.Metrics.PipelineDeals != 1 {
		t.Fatalf("unexpected metrics: %+v", payload.Metrics)
	}
	if payload.Metrics.PipelineValue != 14000 {
		t.Fatalf("expected pipeline value 14000, got %d", payload.Metrics.PipelineValue)
	}
	if payload.ActivityFeed[0].Title != "Proposal sent: Glow Salon" {
		t.Fatalf("unexpected feed head: %q", payload.ActivityFeed[0].Title)
	}
}

func TestRedisLimiterAcrossRequests(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheet))
	}))
	defer up.Close()

	srv, _ := stack(t, up.URL, 3)

	get := func() *http.Response {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/crm", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	for i, want := range []string{"2", "1", "0"} {
		resp := get()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != want {
			t.Fatalf("request %d: expected remaining %s, got %s", i, want, got)
		}
	}

	resp := get()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestUpstreamOutageIsBadGateway(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer up.Close()

	srv, poll := stack(t, up.URL, 10)
	if err := poll.RunContext(context.Background()); err == nil {
		t.Fatalf("expected poll to fail")
	}

	resp, err := http.Get(srv.URL + "/api/crm")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}
