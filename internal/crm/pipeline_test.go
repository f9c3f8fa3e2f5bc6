package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/agents"
	"github.com/AngelCh415/leadsync/internal/ingest"
	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/store"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

const export = "Date Added,Business Name,Contact Name,Status,Notes,Next Action,Follow-up Date,Priority,Source\n" +
	"2025-03-14,Glow Salon,Ana,Contacted,Wants a demo,Send deck,2025-03-18,High,Instagram\n" +
	"2025-03-01,Cut & Co,,Active client,,,,,Referral\n" +
	"2025-03-10,,Nobody,Contacted,,,,,\n" +
	"2025-03-12,Blade Room,,,,,,,Pipeline sweep\n"

type stubSource struct {
	raw string
	err error
}

func (s stubSource) Export(context.Context) (store.Snapshot, error) {
	if s.err != nil {
		return store.Snapshot{}, s.err
	}
	return store.Snapshot{Raw: s.raw, FetchedAt: now, Version: 1}, nil
}

func newPipeline(t *testing.T, src Source) *Pipeline {
	t.Helper()
	svc := metrics.NewService(metrics.WithClock(func() time.Time { return now }))
	reg, err := agents.NewRegistry()
	require.NoError(t, err)
	return New(src, svc, agents.NewProjector(reg, svc), zap.NewNop())
}

func TestBuild(t *testing.T) {
	p := newPipeline(t, stubSource{raw: export})

	payload, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, payload.Leads, 3)
	assert.Equal(t, "Glow Salon", payload.Leads[0].BusinessName)
	assert.Equal(t, 3, payload.Metrics.TotalLeads)
	assert.Equal(t, 1, payload.Metrics.ActiveClients)
	assert.Equal(t, 2, payload.Metrics.PipelineDeals)
	assert.Equal(t, 25000+8000, payload.Metrics.PipelineValue)
	assert.Equal(t, "2025-03-15T12:00:00.000Z", payload.LastSynced)
	assert.Len(t, payload.ActivityFeed, 3)
	assert.Equal(t, "Contacted: Glow Salon", payload.ActivityFeed[0].Title)
}

func TestBuildPropagatesFetchFailure(t *testing.T) {
	fetchErr := &ingest.FetchError{URL: "http://x", StatusCode: http.StatusServiceUnavailable}
	p := newPipeline(t, stubSource{err: fetchErr})

	_, err := p.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrFetchFailed))

	_, err = p.AgentDetail(context.Background(), "sales")
	assert.True(t, errors.Is(err, ingest.ErrFetchFailed))

	_, err = p.LogStream(context.Background())
	assert.True(t, errors.Is(err, ingest.ErrFetchFailed))
}

func TestAgentDetail(t *testing.T) {
	p := newPipeline(t, stubSource{raw: export})

	d, err := p.AgentDetail(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, "Sales", d.Profile.Name)
	assert.Equal(t, 1, d.Metrics.LeadsOwned)
	require.Len(t, d.LiveTasks, 1)
	assert.Equal(t, "Blade Room", d.LiveTasks[0].Title)
	assert.Equal(t, "Awaiting update", d.LiveTasks[0].Status)
}

func TestLogStream(t *testing.T) {
	p := newPipeline(t, stubSource{raw: export})

	ls, err := p.LogStream(context.Background())
	require.NoError(t, err)

	require.Len(t, ls.Logs, 3)
	assert.Equal(t, "Ana-0", ls.Logs[0].ID)
	assert.Equal(t, "CRM import", ls.Logs[0].Source)
	assert.Equal(t, "Contacted: Glow Salon", ls.Logs[0].Title)
	assert.Equal(t, "Pipeline sweep-1", ls.Logs[1].ID)

	require.Len(t, ls.SpreadsheetSnapshot, 3)
	assert.Equal(t, "Glow Salon", ls.SpreadsheetSnapshot[0].Business)
	assert.Equal(t, "Send deck", ls.SpreadsheetSnapshot[0].NextAction)
	assert.Equal(t, "Blade Room", ls.SpreadsheetSnapshot[1].Business)
	assert.Equal(t, "New", ls.SpreadsheetSnapshot[1].Status)
	assert.Equal(t, "Triage", ls.SpreadsheetSnapshot[1].NextAction)
	assert.Equal(t, "—", ls.SpreadsheetSnapshot[1].FollowUp)
	assert.Equal(t, ls.LastSynced, "2025-03-15T12:00:00.000Z")
}

func TestSnapshotCapsAtSix(t *testing.T) {
	raw := "Business Name,Date Added\n"
	for i := 1; i <= 9; i++ {
		raw += fmt.Sprintf("Shop %d,2025-03-0%d\n", i, i)
	}
	p := newPipeline(t, stubSource{raw: raw})

	ls, err := p.LogStream(context.Background())
	require.NoError(t, err)
	require.Len(t, ls.SpreadsheetSnapshot, 6)
	assert.Equal(t, "Shop 9", ls.SpreadsheetSnapshot[0].Business)
	assert.Equal(t, "Shop 4", ls.SpreadsheetSnapshot[5].Business)
	assert.Len(t, ls.Logs, 4)
}

func TestPipelineOverHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(export))
	}))
	defer srv.Close()

	fetcher := ingest.NewFetcher(ingest.NewHTTPClient(time.Second), srv.URL, nil)
	src := ingest.NewSource(fetcher, store.NewMemoryStore(), time.Minute, zap.NewNop(),
		ingest.WithSourceClock(func() time.Time { return now }))
	p := newPipeline(t, src)

	leads, err := p.Leads(context.Background())
	require.NoError(t, err)
	assert.Len(t, leads, 3)
}
