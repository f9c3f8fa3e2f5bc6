package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/AngelCh415/leadsync/internal/models"
)

const (
	breakdownSize = 3
	feedSize      = 4
	week          = 7 * 24 * time.Hour
)

var epoch = time.Unix(0, 0)

// Service derives the dashboard rollups from a lead collection. It holds no
// state besides its clock and location, so Aggregate is safe to call
// concurrently and returns identical output for identical input and instant.
type Service struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used for dates that carry none.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(opts ...Option) *Service {
	s := &Service{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time { return s.now() }

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) ParseDate(value string) (time.Time, bool) { return ParseDate(value, s.loc) }

func (s *Service) RelativeTime(value string, now time.Time) string {
	return FormatRelative(value, now, s.loc)
}

// Aggregate evaluates every rollup against a single instant.
func (s *Service) Aggregate(leads []models.Lead) models.Aggregates {
	return s.AggregateAt(leads, s.now())
}

func (s *Service) AggregateAt(leads []models.Lead, now time.Time) models.Aggregates {
	return models.Aggregates{
		Metrics:      s.summarize(leads, now),
		Breakdown:    breakdown(leads),
		FollowUps:    s.followUps(leads, now),
		ActivityFeed: s.activityFeed(leads, now),
	}
}

func (s *Service) summarize(leads []models.Lead, now time.Time) models.MetricsSummary {
	weekAgo := now.Add(-week)
	out := models.MetricsSummary{TotalLeads: len(leads)}
	for _, l := range leads {
		if added, ok := s.ParseDate(l.DateAdded); ok && !added.Before(weekAgo) && !added.After(now) {
			out.NewLeadsThisWeek++
		}
		if IsActiveStatus(l.Status) {
			out.ActiveClients++
		}
		if IsPipelineDeal(l.Status) {
			out.PipelineDeals++
			out.PipelineValue += PriorityWeight(l.Priority)
		}
	}
	return out
}

// breakdown ranks statuses by count. Equal counts keep first-seen order.
func breakdown(leads []models.Lead) []models.BreakdownEntry {
	counts := map[string]int{}
	var order []string
	for _, l := range leads {
		label := l.Status
		if label == "" {
			label = "Other"
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	if len(order) == 0 {
		return []models.BreakdownEntry{{Label: "Other", Value: 0, Color: Palette[0]}}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > breakdownSize {
		order = order[:breakdownSize]
	}

	out := make([]models.BreakdownEntry, 0, len(order))
	for i, label := range order {
		out = append(out, models.BreakdownEntry{
			Label: label,
			Value: counts[label],
			Color: Palette[i%len(Palette)],
		})
	}
	return out
}

func (s *Service) followUps(leads []models.Lead, now time.Time) []models.FollowUpSummary {
	weekEnd := now.Add(week)
	due, overdue := 0, 0
	for _, l := range leads {
		d, ok := s.ParseDate(l.FollowUpDate)
		if !ok {
			continue
		}
		switch {
		case d.Before(now):
			overdue++
		case !d.After(weekEnd):
			due++
		}
	}

	dueText := "No follow-ups due"
	if due > 0 {
		dueText = fmt.Sprintf("%d follow-ups scheduled", due)
	}
	overdueText := "No overdue tasks"
	if overdue > 0 {
		overdueText = fmt.Sprintf("%d need immediate attention", overdue)
	}
	return []models.FollowUpSummary{
		{Label: "Due this week", Value: due, Descriptor: dueText},
		{Label: "Overdue", Value: overdue, Descriptor: overdueText},
	}
}

// activityFeed lists the newest leads first; undated leads sort as the epoch.
func (s *Service) activityFeed(leads []models.Lead, now time.Time) []models.ActivityEntry {
	sorted := s.SortByDateAdded(leads)
	if len(sorted) > feedSize {
		sorted = sorted[:feedSize]
	}

	out := make([]models.ActivityEntry, 0, len(sorted))
	for _, l := range sorted {
		out = append(out, models.ActivityEntry{
			Title:  activityTitle(l),
			Agent:  firstNonEmpty(l.ContactName, l.Source, "CRM sync"),
			Detail: firstNonEmpty(l.Notes, l.NextAction, l.Location, "Live CRM record"),
			Time:   s.RelativeTime(firstNonEmpty(l.DateAdded, l.FollowUpDate), now),
			Tag:    firstNonEmpty(l.Status, "CRM"),
		})
	}
	return out
}

// SortByDateAdded returns a copy ordered newest first. The input is not touched.
func (s *Service) SortByDateAdded(leads []models.Lead) []models.Lead {
	return sortByTime(leads, func(l models.Lead) time.Time {
		if t, ok := s.ParseDate(l.DateAdded); ok {
			return t
		}
		return epoch
	})
}

// SortByRecency orders a copy newest first by dateAdded, then followUpDate.
// Leads with neither count as now.
func (s *Service) SortByRecency(leads []models.Lead, now time.Time) []models.Lead {
	return sortByTime(leads, func(l models.Lead) time.Time {
		if t, ok := s.ParseDate(l.DateAdded); ok {
			return t
		}
		if t, ok := s.ParseDate(l.FollowUpDate); ok {
			return t
		}
		return now
	})
}

// sortByTime is a stable descending sort; each key is computed once.
func sortByTime(leads []models.Lead, key func(models.Lead) time.Time) []models.Lead {
	type keyed struct {
		lead models.Lead
		at   time.Time
	}
	ks := make([]keyed, len(leads))
	for i, l := range leads {
		ks[i] = keyed{lead: l, at: key(l)}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].at.After(ks[j].at) })

	out := make([]models.Lead, len(ks))
	for i, k := range ks {
		out[i] = k.lead
	}
	return out
}

func activityTitle(l models.Lead) string {
	if l.Status != "" {
		return l.Status + ": " + l.BusinessName
	}
	return "New lead: " + l.BusinessName
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
