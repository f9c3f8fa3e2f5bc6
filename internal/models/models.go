package models

// Lead is one business prospect from the CRM export. ID is a display key
// (business-dateAdded-phone) and may collide; nothing deduplicates on it.
// Optional fields are trimmed and default to "".
type Lead struct {
	ID           string `json:"id"`
	DateAdded    string `json:"dateAdded"`
	BusinessName string `json:"businessName"`
	ContactName  string `json:"contactName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	BusinessType string `json:"businessType"`
	Location     string `json:"location"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
	NextAction   string `json:"nextAction"`
	FollowUpDate string `json:"followUpDate"`
	Priority     string `json:"priority"`
	MapURL       string `json:"mapUrl"`
}

type MetricsSummary struct {
	TotalLeads       int `json:"totalLeads"`
	NewLeadsThisWeek int `json:"newLeadsThisWeek"`
	ActiveClients    int `json:"activeClients"`
	PipelineDeals    int `json:"pipelineDeals"`
	PipelineValue    int `json:"pipelineValue"`
}

type BreakdownEntry struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type FollowUpSummary struct {
	Label      string `json:"label"`
	Value      int    `json:"value"`
	Descriptor string `json:"descriptor,omitempty"`
}

type ActivityEntry struct {
	Title  string `json:"title"`
	Agent  string `json:"agent"`
	Detail string `json:"detail"`
	Time   string `json:"time"`
	Tag    string `json:"tag"`
}

// Aggregates is everything derived from a lead collection.
type Aggregates struct {
	Metrics      MetricsSummary
	Breakdown    []BreakdownEntry
	FollowUps    []FollowUpSummary
	ActivityFeed []ActivityEntry
}

type CrmPayload struct {
	Leads         []Lead            `json:"leads"`
	Metrics       MetricsSummary    `json:"metrics"`
	LeadBreakdown []BreakdownEntry  `json:"leadBreakdown"`
	FollowUps     []FollowUpSummary `json:"followUps"`
	ActivityFeed  []ActivityEntry   `json:"activityFeed"`
	LastSynced    string            `json:"lastSynced"`
}

type AgentProfile struct {
	Name      string   `json:"name" yaml:"name"`
	Slug      string   `json:"slug" yaml:"-"`
	Role      string   `json:"role" yaml:"role"`
	Focus     string   `json:"focus" yaml:"focus"`
	Timezone  string   `json:"timezone" yaml:"timezone"`
	Highlight string   `json:"highlight" yaml:"highlight"`
	Keywords  []string `json:"keywords" yaml:"keywords"`
}

type AgentTask struct {
	Title      string `json:"title"`
	Status     string `json:"status"`
	NextAction string `json:"nextAction"`
	Due        string `json:"due"`
}

type AgentLeadSummary struct {
	BusinessName string `json:"businessName"`
	Status       string `json:"status,omitempty"`
	NextAction   string `json:"nextAction,omitempty"`
	FollowUpDate string `json:"followUpDate,omitempty"`
}

type AgentMetrics struct {
	LeadsOwned int `json:"leadsOwned"`
	FollowUps  int `json:"followUps"`
}

type AgentDetail struct {
	Profile       AgentProfile       `json:"profile"`
	LiveTasks     []AgentTask        `json:"liveTasks"`
	RecentActions []ActivityEntry    `json:"recentActions"`
	TopLeads      []AgentLeadSummary `json:"topLeads"`
	Metrics       AgentMetrics       `json:"metrics"`
	LastSynced    string             `json:"lastSynced"`
}

type LogEntry struct {
	ID string `json:"id"`
	ActivityEntry
	Source string `json:"source"`
}

type SnapshotRow struct {
	Business   string `json:"business"`
	Status     string `json:"status"`
	NextAction string `json:"nextAction"`
	FollowUp   string `json:"followUp"`
}

type LogStream struct {
	LastSynced          string        `json:"lastSynced"`
	Logs                []LogEntry    `json:"logs"`
	SpreadsheetSnapshot []SnapshotRow `json:"spreadsheetSnapshot"`
}

type Message struct {
	ID      string `json:"id"`
	From    string `json:"from" validate:"required,max=64"`
	To      string `json:"to" validate:"required,max=64"`
	Message string `json:"message" validate:"required,max=2000"`
	Time    string `json:"time"`
}
