package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists the provider names the anyllm backend accepts.
// Used by [Validate] to warn about unrecognised names.
var ValidLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
}

// dateLayout is the expected form of deadline dates.
const dateLayout = "2006-01-02"

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in the defaults for fields left unset in the YAML.
func applyDefaults(cfg *Config) {
	if cfg.Reminder.Hour == 0 {
		cfg.Reminder.Hour = 8
	}
	if cfg.Reminder.CutoffHour == 0 {
		cfg.Reminder.CutoffHour = cfg.Reminder.Hour
	}
	if cfg.Reminder.Timezone == "" {
		cfg.Reminder.Timezone = "America/New_York"
	}
	if cfg.Reminder.Quotes == "" {
		cfg.Reminder.Quotes = QuoteDeterministic
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
//
// Missing optional credentials are not errors: they degrade the matching
// feature and produce a warning instead (the Discord token is the one
// credential that gates core functionality and is therefore required).
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Discord
	if cfg.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord.token is required"))
	}
	if cfg.Discord.ChannelID == "" {
		slog.Warn("discord.channel_id is empty; daily reminders are disabled")
	}

	// LLM
	if cfg.LLM.Name == "" {
		slog.Warn("llm.name is empty; the bot will not respond to mentions")
	} else {
		if !slices.Contains(ValidLLMProviders, cfg.LLM.Name) {
			slog.Warn("unknown LLM provider name — may be a typo",
				"name", cfg.LLM.Name,
				"known", ValidLLMProviders,
			)
		}
		if cfg.LLM.Model == "" {
			errs = append(errs, fmt.Errorf("llm.model is required when llm.name is set"))
		}
	}

	// CRM
	if cfg.CRM.APIKey == "" {
		slog.Warn("crm.api_key is empty; CRM tools are disabled")
	}

	// Reminder
	if cfg.Reminder.Hour < 0 || cfg.Reminder.Hour > 23 {
		errs = append(errs, fmt.Errorf("reminder.hour %d is out of range [0, 23]", cfg.Reminder.Hour))
	}
	if cfg.Reminder.CutoffHour < 0 || cfg.Reminder.CutoffHour > 23 {
		errs = append(errs, fmt.Errorf("reminder.cutoff_hour %d is out of range [0, 23]", cfg.Reminder.CutoffHour))
	}
	if !cfg.Reminder.Quotes.IsValid() {
		errs = append(errs, fmt.Errorf("reminder.quotes %q is invalid; valid values: deterministic, generated", cfg.Reminder.Quotes))
	}
	if _, err := time.LoadLocation(cfg.Reminder.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("reminder.timezone %q is not a valid IANA timezone: %w", cfg.Reminder.Timezone, err))
	}
	if cfg.Reminder.Quotes == QuoteGenerated && cfg.LLM.Name == "" {
		slog.Warn("reminder.quotes is \"generated\" but no LLM is configured; falling back to the built-in list")
	}

	namesSeen := make(map[string]int, len(cfg.Reminder.Deadlines))
	for i, d := range cfg.Reminder.Deadlines {
		prefix := fmt.Sprintf("reminder.deadlines[%d]", i)
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[d.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of reminder.deadlines[%d]", prefix, d.Name, prev))
			}
			namesSeen[d.Name] = i
		}
		if _, err := time.Parse(dateLayout, d.Date); err != nil {
			errs = append(errs, fmt.Errorf("%s.date %q is not a valid YYYY-MM-DD date", prefix, d.Date))
		}
	}

	return errors.Join(errs...)
}
