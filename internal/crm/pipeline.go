// Package crm turns the raw CRM export into dashboard payloads: fetch,
// normalize, aggregate. Each call computes from the snapshot its source hands
// back; nothing here caches or retries.
package crm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/agents"
	"github.com/AngelCh415/leadsync/internal/ingest"
	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/models"
	"github.com/AngelCh415/leadsync/internal/observability"
	"github.com/AngelCh415/leadsync/internal/store"
)

const (
	snapshotSize = 6
	logSource    = "CRM import"
)

// Source hands back the current export snapshot. Errors satisfy
// errors.Is(err, ingest.ErrFetchFailed) when the export could not be fetched.
type Source interface {
	Export(ctx context.Context) (store.Snapshot, error)
}

type Pipeline struct {
	src  Source
	svc  *metrics.Service
	proj *agents.Projector
	obs  *observability.Collectors
	log  *zap.Logger
}

type Option func(*Pipeline)

func WithCollectors(obs *observability.Collectors) Option {
	return func(p *Pipeline) { p.obs = obs }
}

func New(src Source, svc *metrics.Service, proj *agents.Projector, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, svc: svc, proj: proj, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Agents() *agents.Registry { return p.proj.Registry() }

// Leads fetches the export and normalizes it.
func (p *Pipeline) Leads(ctx context.Context) ([]models.Lead, error) {
	snap, err := p.src.Export(ctx)
	if err != nil {
		return nil, err
	}
	leads, stats, err := ingest.ParseLeadsString(snap.Raw)
	if err != nil {
		return nil, fmt.Errorf("parse export v%d: %w", snap.Version, err)
	}
	p.obs.ObserveParse(len(leads), stats.Dropped, stats.Malformed)
	if stats.Dropped > 0 || stats.Malformed > 0 {
		p.log.Debug("export rows skipped",
			zap.Int("rows", stats.Rows),
			zap.Int("dropped", stats.Dropped),
			zap.Int("malformed", stats.Malformed))
	}
	return leads, nil
}

// Build returns the full dashboard payload.
func (p *Pipeline) Build(ctx context.Context) (models.CrmPayload, error) {
	leads, err := p.Leads(ctx)
	if err != nil {
		return models.CrmPayload{}, err
	}
	now := p.svc.Now()
	agg := p.svc.AggregateAt(leads, now)
	return models.CrmPayload{
		Leads:         leads,
		Metrics:       agg.Metrics,
		LeadBreakdown: agg.Breakdown,
		FollowUps:     agg.FollowUps,
		ActivityFeed:  agg.ActivityFeed,
		LastSynced:    metrics.FormatISO(now),
	}, nil
}

// AgentDetail projects the leads for one agent. Unknown names fall back to
// the default profile; callers that must 404 check the registry first.
func (p *Pipeline) AgentDetail(ctx context.Context, name string) (models.AgentDetail, error) {
	leads, err := p.Leads(ctx)
	if err != nil {
		return models.AgentDetail{}, err
	}
	return p.proj.Build(name, leads, p.svc.Now()), nil
}

// LogStream renders the activity feed as log lines next to a snapshot of the
// most recently touched rows.
func (p *Pipeline) LogStream(ctx context.Context) (models.LogStream, error) {
	payload, err := p.Build(ctx)
	if err != nil {
		return models.LogStream{}, err
	}

	logs := make([]models.LogEntry, 0, len(payload.ActivityFeed))
	for i, a := range payload.ActivityFeed {
		logs = append(logs, models.LogEntry{
			ID:            fmt.Sprintf("%s-%d", a.Agent, i),
			ActivityEntry: a,
			Source:        logSource,
		})
	}

	return models.LogStream{
		LastSynced:          payload.LastSynced,
		Logs:                logs,
		SpreadsheetSnapshot: p.snapshot(payload.Leads),
	}, nil
}

func (p *Pipeline) snapshot(leads []models.Lead) []models.SnapshotRow {
	sorted := p.svc.SortByRecency(leads, p.svc.Now())
	if len(sorted) > snapshotSize {
		sorted = sorted[:snapshotSize]
	}
	rows := make([]models.SnapshotRow, 0, len(sorted))
	for _, l := range sorted {
		rows = append(rows, models.SnapshotRow{
			Business:   l.BusinessName,
			Status:     orDefault(l.Status, "New"),
			NextAction: orDefault(l.NextAction, "Triage"),
			FollowUp:   orDefault(l.FollowUpDate, "—"),
		})
	}
	return rows
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
