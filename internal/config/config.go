package config

import (
	"time"

	"github.com/contractcheck/contractcheck/internal/log"
	"github.com/contractcheck/contractcheck/internal/pactfile"
	"github.com/contractcheck/contractcheck/internal/reporting/json"
	"github.com/contractcheck/contractcheck/internal/reporting/text"
)

type Config struct {
	Settings SettingsConfig `mapstructure:"settings"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Filter   FilterConfig   `mapstructure:"filter"`
}

type SettingsConfig struct {
	LogLevel          log.Level       `mapstructure:"log_level"`
	LogFormat         log.Format      `mapstructure:"log_format"`
	Concurrency       int             `mapstructure:"concurrency" validate:"gte=0"`
	RequestsPerSecond float64         `mapstructure:"requests_per_second" validate:"gte=0"`
	ReporterType      string          `mapstructure:"reporter"`
	Reporter          ReporterConfigs `mapstructure:"reporter_config"`
}

type ReporterConfigs struct {
	Text *text.Config `mapstructure:"text,omitempty"`
	JSON *json.Config `mapstructure:"json,omitempty"`
}

// ProviderConfig describes the provider under verification.
type ProviderConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// BaseURL is where replayed requests are sent.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// StateChangeURL is the provider's state change handler endpoint.
	StateChangeURL string `mapstructure:"state_change_url" validate:"omitempty,url"`
	// StateChangeTeardown makes the verifier call the state change endpoint
	// with action "teardown" after each interaction.
	StateChangeTeardown bool `mapstructure:"state_change_teardown"`
	// MessagePath is the endpoint messages are requested from.
	MessagePath string `mapstructure:"message_path"`
	// Headers are added to every replayed request.
	Headers map[string]string `mapstructure:"headers"`
	// RequestTimeout bounds each replayed request and message fetch.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	// StateChangeTimeout bounds each state change callback.
	StateChangeTimeout time.Duration `mapstructure:"state_change_timeout" validate:"gte=0"`
}

type SourcesConfig struct {
	Files  []string          `mapstructure:"files"`
	Dirs   []string          `mapstructure:"dirs"`
	URLs   []URLSourceConfig `mapstructure:"urls"`
	Broker *BrokerConfig     `mapstructure:"broker,omitempty"`
}

func (s SourcesConfig) IsEmpty() bool {
	return len(s.Files) == 0 && len(s.Dirs) == 0 && len(s.URLs) == 0 && s.Broker == nil
}

type URLSourceConfig struct {
	URL      string `mapstructure:"url" validate:"required,url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

type BrokerConfig struct {
	BaseURL         string                             `mapstructure:"base_url" validate:"required,url"`
	Username        string                             `mapstructure:"username"`
	Password        string                             `mapstructure:"password"`
	Token           string                             `mapstructure:"token"`
	Selectors       []pactfile.ConsumerVersionSelector `mapstructure:"consumer_version_selectors"`
	IncludePending  bool                               `mapstructure:"include_pending"`
	IncludeWIPSince string                             `mapstructure:"include_wip_pacts_since"`
}

func (b *BrokerConfig) Auth() pactfile.Auth {
	return pactfile.Auth{Username: b.Username, Password: b.Password, Token: b.Token}
}

type PublishConfig struct {
	// Enabled turns on publishing verification results to the broker.
	Enabled bool `mapstructure:"enabled"`
	// ProviderVersion is required when publishing.
	ProviderVersion string `mapstructure:"provider_version" validate:"required_if=Enabled true"`
	ProviderBranch  string `mapstructure:"provider_branch"`
	BuildURL        string `mapstructure:"build_url"`
}

type FilterConfig struct {
	// Description is a regular expression matched against interaction
	// descriptions.
	Description string `mapstructure:"description"`
	// State selects interactions with the given provider state.
	State string `mapstructure:"state"`
	// NoState selects interactions that declare no provider state.
	NoState bool `mapstructure:"no_state"`
	// Consumers selects pacts by consumer name.
	Consumers []string `mapstructure:"consumers"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			Concurrency:  10,
			ReporterType: text.ReporterTypeText,
			Reporter: ReporterConfigs{
				Text: &text.Config{NoColor: false},
			},
		},
		Provider: ProviderConfig{
			MessagePath:        "/",
			RequestTimeout:     5 * time.Second,
			StateChangeTimeout: 5 * time.Second,
		},
	}
}
