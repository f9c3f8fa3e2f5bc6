package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const sheetsExportURL = "https://docs.google.com/spreadsheets/d/%s/export?format=csv"

// DefaultSheetID is the lead tracker the dashboard reads when nothing else is configured.
const DefaultSheetID = "1X9AiH3AYbsSnRpM7REIItFabGeVsL3Lsgh04M2EcE-4"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	CRM       CRMConfig       `mapstructure:"crm"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Security  SecurityConfig  `mapstructure:"security"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `validate:"required"`
	Environment string `validate:"required"`
	Port        int    `validate:"gt=0,lte=65535"`
}

// CRMConfig describes the lead export source and how often it is refreshed.
type CRMConfig struct {
	SheetID     string  `mapstructure:"sheetId"`
	ExportURL   string  `mapstructure:"exportUrl" validate:"required,url"`
	HTTPTimeout int     `mapstructure:"httpTimeout" validate:"gt=0"` // seconds
	CacheTTL    int     `mapstructure:"cacheTtl" validate:"gte=0"`   // seconds
	PollEnabled bool    `mapstructure:"pollEnabled"`
	PollCron    string  `mapstructure:"pollCron"`
	FetchRPS    float64 `mapstructure:"fetchRps" validate:"gt=0"`
	FetchBurst  int     `mapstructure:"fetchBurst" validate:"gte=1"`
}

// LimiterConfig guards one entry point.
type LimiterConfig struct {
	MaxRequests int    `mapstructure:"maxRequests" validate:"gte=1"`
	WindowMs    int64  `mapstructure:"windowMs" validate:"gte=1"`
	Prefix      string `mapstructure:"prefix" validate:"required"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `validate:"oneof=memory redis"`
	RedisURL        string        `mapstructure:"redisUrl" validate:"required_if=Backend redis"`
	JanitorInterval int           `mapstructure:"janitorInterval" validate:"gte=0"` // seconds
	CRM             LimiterConfig `mapstructure:"crm"`
	AgentDetail     LimiterConfig `mapstructure:"agentDetail"`
	LogStream       LimiterConfig `mapstructure:"logStream"`
	Messages        LimiterConfig `mapstructure:"messages"`
}

type SecurityConfig struct {
	// APIKey protects agent detail, messages and manual ingest. Empty leaves them open.
	APIKey string `mapstructure:"apiKey"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders"`
	ExposedHeaders   []string `mapstructure:"exposedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials"`
	MaxAge           int      `mapstructure:"maxAge"`
}

type LoggingConfig struct {
	Level  string
	Format string `validate:"oneof=json console"`
}

func (c *CRMConfig) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

func (c *CRMConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (l LimiterConfig) Window() time.Duration {
	return time.Duration(l.WindowMs) * time.Millisecond
}

func (r *RateLimitConfig) JanitorDuration() time.Duration {
	return time.Duration(r.JanitorInterval) * time.Second
}

// Load reads config.json (optional), .env (optional) and the environment, in
// increasing order of precedence, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Legacy environment names.
	if cfg.CRM.SheetID == "" {
		cfg.CRM.SheetID = v.GetString("CRM_SHEET_ID")
	}
	if cfg.CRM.SheetID == "" {
		cfg.CRM.SheetID = DefaultSheetID
	}
	if cfg.CRM.ExportURL == "" {
		cfg.CRM.ExportURL = v.GetString("CRM_SHEETS_EXPORT_URL")
	}
	if cfg.CRM.ExportURL == "" {
		cfg.CRM.ExportURL = fmt.Sprintf(sheetsExportURL, cfg.CRM.SheetID)
	}
	if cfg.Security.APIKey == "" {
		cfg.Security.APIKey = v.GetString("DASHBOARD_API_KEY")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "leadsync")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("crm.sheetId", "")
	v.SetDefault("crm.exportUrl", "")
	v.SetDefault("crm.httpTimeout", 15)
	v.SetDefault("crm.cacheTtl", 300) // matches the export's revalidate window
	v.SetDefault("crm.pollEnabled", true)
	v.SetDefault("crm.pollCron", "@every 5m")
	v.SetDefault("crm.fetchRps", 1.0)
	v.SetDefault("crm.fetchBurst", 2)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.redisUrl", "")
	v.SetDefault("rateLimit.janitorInterval", 120)
	v.SetDefault("rateLimit.crm.maxRequests", 45)
	v.SetDefault("rateLimit.crm.windowMs", 60000)
	v.SetDefault("rateLimit.crm.prefix", "crm")
	v.SetDefault("rateLimit.agentDetail.maxRequests", 30)
	v.SetDefault("rateLimit.agentDetail.windowMs", 60000)
	v.SetDefault("rateLimit.agentDetail.prefix", "agent-detail")
	v.SetDefault("rateLimit.logStream.maxRequests", 50)
	v.SetDefault("rateLimit.logStream.windowMs", 60000)
	v.SetDefault("rateLimit.logStream.prefix", "log-stream")
	v.SetDefault("rateLimit.messages.maxRequests", 40)
	v.SetDefault("rateLimit.messages.windowMs", 60000)
	v.SetDefault("rateLimit.messages.prefix", "messages")

	v.SetDefault("security.apiKey", "")

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Dashboard-Api-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"})
	v.SetDefault("cors.allowCredentials", false)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
