// Package config holds the chatload configuration: which server to drive, the
// shape of every bench scenario, and where run history goes.
package config

import (
	"time"
)

// Config is the top-level configuration.
type Config struct {
	// Server is the base URL of the chat service, e.g. https://localhost:2289.
	Server string `json:"server" yaml:"server"`

	// Secret is the password used for every generated identity.
	Secret string `json:"secret" yaml:"secret"`

	// DisplayName is used on registration. Empty means the local part of the identity.
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`

	// IdentityPattern is formatted with the client number (1-based).
	IdentityPattern string `json:"identityPattern" yaml:"identityPattern"`

	// Timeout bounds a whole scenario run. Zero means no deadline.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Client       ClientConfig       `json:"client" yaml:"client"`
	Provisioning ProvisioningConfig `json:"provisioning" yaml:"provisioning"`
	SendMessages SendMessagesConfig `json:"sendMessages" yaml:"sendMessages"`
	Smoketest    SmoketestConfig    `json:"smoketest" yaml:"smoketest"`
	SingleGuild  SingleGuildConfig  `json:"singleGuild" yaml:"singleGuild"`
	Conformance  ConformanceConfig  `json:"conformance" yaml:"conformance"`
	History      HistoryConfig      `json:"history" yaml:"history"`
	Log          LogConfig          `json:"log" yaml:"log"`
}

// ClientConfig tunes the HTTP and WebSocket transport.
type ClientConfig struct {
	// RequestTimeout bounds a single call.
	RequestTimeout Duration `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"`

	// InsecureSkipVerify accepts self-signed certificates.
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`

	// MaxConnsPerHost caps connections to the server. Zero means no limit.
	MaxConnsPerHost int `json:"maxConnsPerHost,omitempty" yaml:"maxConnsPerHost,omitempty"`

	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
}

// ProvisioningConfig controls how sessions are prepared.
type ProvisioningConfig struct {
	// Concurrency caps simultaneous provisioning and probing goroutines. Zero
	// means one goroutine per client.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	GuildName     string `json:"guildName" yaml:"guildName"`
	ChannelName   string `json:"channelName" yaml:"channelName"`
	CreateChannel bool   `json:"createChannel" yaml:"createChannel"`
}

// SendMessagesConfig configures the send-messages scenario.
type SendMessagesConfig struct {
	Clients int   `json:"clients" yaml:"clients"`
	Sizes   []int `json:"sizes" yaml:"sizes"`
	Trials  int   `json:"trials" yaml:"trials"`
	Warmup  bool  `json:"warmup" yaml:"warmup"`
}

// SmoketestConfig configures the smoketest scenario.
type SmoketestConfig struct {
	Clients  int `json:"clients" yaml:"clients"`
	Messages int `json:"messages" yaml:"messages"`
}

// SingleGuildConfig configures the single-guild scenario.
type SingleGuildConfig struct {
	Clients   int             `json:"clients" yaml:"clients"`
	Messages  int             `json:"messages" yaml:"messages"`
	ThinkTime ThinkTimeConfig `json:"thinkTime" yaml:"thinkTime"`
	InviteID  string          `json:"inviteId" yaml:"inviteId"`
}

// ThinkTimeConfig is an inclusive range of pauses between sends.
type ThinkTimeConfig struct {
	Min Duration `json:"min" yaml:"min"`
	Max Duration `json:"max" yaml:"max"`
}

// ConformanceConfig configures the check command. Empty fields fall back to
// the top-level values.
type ConformanceConfig struct {
	Identity     string   `json:"identity" yaml:"identity"`
	Secret       string   `json:"secret,omitempty" yaml:"secret,omitempty"`
	DisplayName  string   `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	GuildName    string   `json:"guildName,omitempty" yaml:"guildName,omitempty"`
	EventTimeout Duration `json:"eventTimeout,omitempty" yaml:"eventTimeout,omitempty"`
}

// HistoryConfig enables the run history store.
type HistoryConfig struct {
	// Path of the bbolt file. Empty disables history.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`
}

// Default returns the configuration used when no file is given: the local
// development server and the workloads of the reference benchmarks.
func Default() *Config {
	return &Config{
		Server:          "https://localhost:2289",
		Secret:          "123456789Ab",
		IdentityPattern: "test%d@test.org",
		Client: ClientConfig{
			RequestTimeout:     Duration(30 * time.Second),
			InsecureSkipVerify: true,
			UserAgent:          "chatload",
		},
		Provisioning: ProvisioningConfig{
			GuildName:     "test",
			ChannelName:   "general",
			CreateChannel: true,
		},
		SendMessages: SendMessagesConfig{
			Clients: 4,
			Sizes:   []int{10, 100, 1000},
			Trials:  10,
			Warmup:  true,
		},
		Smoketest: SmoketestConfig{
			Clients:  1000,
			Messages: 1000,
		},
		SingleGuild: SingleGuildConfig{
			Clients:  1000,
			Messages: 10,
			ThinkTime: ThinkTimeConfig{
				Min: Duration(200 * time.Millisecond),
				Max: Duration(1000 * time.Millisecond),
			},
			InviteID: "test",
		},
		Conformance: ConformanceConfig{
			Identity:     "conformance@test.org",
			DisplayName:  "conformance",
			EventTimeout: Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Duration is a time.Duration that reads and writes as a string such as "30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
