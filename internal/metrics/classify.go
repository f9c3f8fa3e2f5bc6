package metrics

import "strings"

// KeywordSet matches text that contains any of its lowercase keywords.
type KeywordSet []string

func (k KeywordSet) Match(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range k {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var (
	ActiveKeywords   = KeywordSet{"active", "client", "won", "booked", "signed"}
	PipelineKeywords = KeywordSet{"contact", "pipeline", "proposal", "new", "pitch", "in progress", "follow"}
)

// Estimated deal value per priority. Anything unrecognised is valued as low.
var PriorityWeights = map[string]int{
	"high":   25000,
	"medium": 14000,
	"low":    8000,
}

const DefaultPriorityWeight = 8000

// Palette colors breakdown entries by rank.
var Palette = []string{"#93C572", "#FFD166", "#EF476F", "#3B82F6", "#6366F1"}

func IsActiveStatus(status string) bool {
	if status == "" {
		return false
	}
	return ActiveKeywords.Match(status)
}

// IsPipelineStatus treats a blank status as an open deal.
func IsPipelineStatus(status string) bool {
	if status == "" {
		return true
	}
	return PipelineKeywords.Match(status)
}

// IsPipelineDeal is the disjoint pipeline classification: active wins.
func IsPipelineDeal(status string) bool {
	return !IsActiveStatus(status) && IsPipelineStatus(status)
}

func PriorityWeight(priority string) int {
	if w, ok := PriorityWeights[norm(priority)]; ok {
		return w
	}
	return DefaultPriorityWeight
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
