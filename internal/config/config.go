// Package config provides the configuration schema and loader for the
// dealbot Discord assistant.
package config

// LogLevel controls log verbosity for the bot.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// QuoteMode selects how the daily motivational quote is produced.
type QuoteMode string

const (
	// QuoteDeterministic picks from the built-in quote list, seeded by the
	// day-of-year so the quote is stable for a whole calendar day.
	QuoteDeterministic QuoteMode = "deterministic"

	// QuoteGenerated asks the LLM for a fresh quote, falling back to the
	// built-in list when generation fails.
	QuoteGenerated QuoteMode = "generated"
)

// IsValid reports whether m is a recognised quote mode.
func (m QuoteMode) IsValid() bool {
	return m == QuoteDeterministic || m == QuoteGenerated
}

// Config is the root configuration structure for dealbot.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	LLM      ProviderEntry  `yaml:"llm"`
	CRM      CRMConfig      `yaml:"crm"`
	Article  ArticleConfig  `yaml:"article"`
	Reminder ReminderConfig `yaml:"reminder"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint listens
	// on (e.g., ":9090"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DiscordConfig holds the Discord gateway settings.
type DiscordConfig struct {
	// Token is the Discord bot token. Required.
	Token string `yaml:"token"`

	// ChannelID is the channel the daily reminder is posted to. When empty
	// the bot still answers mentions but reminders are disabled.
	ChannelID string `yaml:"channel_id"`
}

// ProviderEntry selects and configures the LLM backend.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "anthropic", "openai",
	// "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "claude-sonnet-4-5", "gpt-4o").
	Model string `yaml:"model"`
}

// CRMConfig holds the Attio CRM API settings.
type CRMConfig struct {
	// APIKey is the Attio bearer token. When empty, CRM tools are disabled
	// and the bot answers without tool access.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the Attio API base URL. Defaults to the public
	// endpoint when empty.
	BaseURL string `yaml:"base_url"`
}

// ArticleConfig holds settings for the article summarization path.
type ArticleConfig struct {
	// UserAgent overrides the User-Agent header sent when fetching pages.
	// Some sites refuse requests with obvious bot agents.
	UserAgent string `yaml:"user_agent"`
}

// ReminderConfig holds the daily deadline-reminder settings.
type ReminderConfig struct {
	// Hour is the local hour (0–23) the daily reminder fires at. Default 8.
	Hour int `yaml:"hour"`

	// CutoffHour is the hour before which the startup missed-reminder check
	// is a no-op. Defaults to Hour.
	CutoffHour int `yaml:"cutoff_hour"`

	// Timezone is the IANA timezone name used for scheduling and for deciding
	// whether a message was sent "today" (e.g., "America/New_York").
	Timezone string `yaml:"timezone"`

	// Quotes selects how the motivational line is produced.
	Quotes QuoteMode `yaml:"quotes"`

	// Deadlines lists the tracked deadlines.
	Deadlines []DeadlineConfig `yaml:"deadlines"`

	// PostgresDSN, when set, switches the sent-today ledger from
	// history-scanning to a persisted flag in PostgreSQL.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// DeadlineConfig is a single tracked deadline.
type DeadlineConfig struct {
	// Name is the deadline's display name (e.g., "Metabit Contract").
	Name string `yaml:"name"`

	// Date is the deadline date in YYYY-MM-DD form.
	Date string `yaml:"date"`
}
