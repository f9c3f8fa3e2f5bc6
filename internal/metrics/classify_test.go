package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status   string
		active   bool
		pipeline bool
	}{
		{"", false, true},
		{"Active", true, false},
		{"Closed Won", true, false},
		{"Booked demo", true, false},
		{"Signed", true, false},
		{"Contacted", false, true},
		{"Proposal sent", false, true},
		{"In Progress", false, true},
		{"Follow up", false, true},
		{"New client", true, false}, // active wins over pipeline
		{"Lost", false, false},
		{"Not interested", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			assert.Equal(t, tc.active, IsActiveStatus(tc.status))
			assert.Equal(t, tc.pipeline, IsPipelineDeal(tc.status))
		})
	}
}

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 25000, PriorityWeight("High"))
	assert.Equal(t, 14000, PriorityWeight(" medium "))
	assert.Equal(t, 8000, PriorityWeight("low"))
	assert.Equal(t, 8000, PriorityWeight(""))
	assert.Equal(t, 8000, PriorityWeight("urgent"))
}

func TestKeywordSetMatchIsCaseInsensitive(t *testing.T) {
	k := KeywordSet{"pipeline"}
	assert.True(t, k.Match("PIPELINE review"))
	assert.False(t, k.Match("pipe"))
}
