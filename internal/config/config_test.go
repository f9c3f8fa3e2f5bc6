package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "leadsync", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, DefaultSheetID, cfg.CRM.SheetID)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/"+DefaultSheetID+"/export?format=csv", cfg.CRM.ExportURL)
	assert.Equal(t, 45, cfg.RateLimit.CRM.MaxRequests)
	assert.Equal(t, "crm", cfg.RateLimit.CRM.Prefix)
	assert.Equal(t, 30, cfg.RateLimit.AgentDetail.MaxRequests)
	assert.Equal(t, "agent-detail", cfg.RateLimit.AgentDetail.Prefix)
	assert.Equal(t, 50, cfg.RateLimit.LogStream.MaxRequests)
	assert.Equal(t, 40, cfg.RateLimit.Messages.MaxRequests)
	assert.Equal(t, int64(60000), cfg.RateLimit.CRM.WindowMs)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 300, cfg.CRM.CacheTTL)
}

func TestFromViperSheetIDBuildsURL(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("crm.sheetId", "abc123")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc123/export?format=csv", cfg.CRM.ExportURL)
}

func TestFromViperExplicitURLWins(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("crm.sheetId", "abc123")
	v.Set("crm.exportUrl", "https://example.com/leads.csv")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/leads.csv", cfg.CRM.ExportURL)
}

func TestFromViperRejectsRedisWithoutURL(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("rateLimit.backend", "redis")

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestFromViperRejectsZeroLimit(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("rateLimit.crm.maxRequests", 0)

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestLimiterWindow(t *testing.T) {
	l := LimiterConfig{MaxRequests: 3, WindowMs: 1500, Prefix: "x"}
	assert.Equal(t, "1.5s", l.Window().String())
}
