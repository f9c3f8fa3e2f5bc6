package agents

import (
	"strings"
	"time"

	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/models"
)

const (
	liveTaskCount     = 3
	recentActionCount = 4
	topLeadCount      = 4
	dueLayout         = "2 Jan"
)

// Projector builds the agent-scoped view of a lead collection.
type Projector struct {
	reg *Registry
	svc *metrics.Service
}

func NewProjector(reg *Registry, svc *metrics.Service) *Projector {
	return &Projector{reg: reg, svc: svc}
}

func (p *Projector) Registry() *Registry { return p.reg }

// Build selects the leads whose searchable text mentions one of the agent's
// keywords, or every lead when none does, and projects tasks, recent actions
// and top leads from that pool. Unknown names get the default profile.
func (p *Projector) Build(agentName string, leads []models.Lead, now time.Time) models.AgentDetail {
	profile, ok := p.reg.Lookup(agentName)
	if !ok {
		profile = p.reg.Default()
	}

	pool := Pool(profile, leads)
	sorted := p.svc.SortByRecency(pool, now)

	return models.AgentDetail{
		Profile:       profile,
		LiveTasks:     p.liveTasks(pool),
		RecentActions: p.recentActions(profile.Name, sorted, now),
		TopLeads:      topLeads(sorted),
		Metrics: models.AgentMetrics{
			LeadsOwned: len(pool),
			FollowUps:  countFollowUps(pool),
		},
		LastSynced: metrics.FormatISO(now),
	}
}

// Pool is the keyword-filtered subset of leads, falling back to all of them.
func Pool(profile models.AgentProfile, leads []models.Lead) []models.Lead {
	keywords := metrics.KeywordSet(profile.Keywords)
	var matched []models.Lead
	for _, l := range leads {
		if keywords.Match(haystack(l)) {
			matched = append(matched, l)
		}
	}
	if len(matched) == 0 {
		return leads
	}
	return matched
}

func haystack(l models.Lead) string {
	return strings.Join([]string{l.BusinessName, l.ContactName, l.Notes, l.Status, l.Source}, " ")
}

func (p *Projector) liveTasks(pool []models.Lead) []models.AgentTask {
	n := min(len(pool), liveTaskCount)
	out := make([]models.AgentTask, 0, n)
	for _, l := range pool[:n] {
		out = append(out, models.AgentTask{
			Title:      l.BusinessName,
			Status:     orDefault(l.Status, "Awaiting update"),
			NextAction: orDefault(l.NextAction, "Discuss next steps"),
			Due:        p.due(l.FollowUpDate),
		})
	}
	return out
}

func (p *Projector) due(value string) string {
	t, ok := p.svc.ParseDate(value)
	if !ok {
		return "TBD"
	}
	return t.Format(dueLayout)
}

func (p *Projector) recentActions(agent string, sorted []models.Lead, now time.Time) []models.ActivityEntry {
	n := min(len(sorted), recentActionCount)
	out := make([]models.ActivityEntry, 0, n)
	for _, l := range sorted[:n] {
		out = append(out, models.ActivityEntry{
			Title:  orDefault(l.Status, "CRM update") + " · " + l.BusinessName,
			Agent:  agent,
			Detail: orDefault(orDefault(orDefault(l.Notes, l.NextAction), l.BusinessType), "Live coordination"),
			Time:   p.svc.RelativeTime(orDefault(l.DateAdded, l.FollowUpDate), now),
			Tag:    orDefault(l.Status, "CRM"),
		})
	}
	return out
}

func topLeads(sorted []models.Lead) []models.AgentLeadSummary {
	n := min(len(sorted), topLeadCount)
	out := make([]models.AgentLeadSummary, 0, n)
	for _, l := range sorted[:n] {
		out = append(out, models.AgentLeadSummary{
			BusinessName: l.BusinessName,
			Status:       l.Status,
			NextAction:   l.NextAction,
			FollowUpDate: l.FollowUpDate,
		})
	}
	return out
}

func countFollowUps(pool []models.Lead) int {
	n := 0
	for _, l := range pool {
		if l.FollowUpDate != "" {
			n++
		}
	}
	return n
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
