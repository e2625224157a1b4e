package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParseYAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
server: http://chat.internal:8080
sendMessages:
  clients: 8
  sizes: [5, 50]
singleGuild:
  thinkTime:
    min: 10ms
    max: 20ms
log:
  level: debug
`)

	cfg, err := Parse(data, "bench.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server != "http://chat.internal:8080" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.SendMessages.Clients != 8 {
		t.Errorf("SendMessages.Clients = %d, want 8", cfg.SendMessages.Clients)
	}
	if len(cfg.SendMessages.Sizes) != 2 || cfg.SendMessages.Sizes[1] != 50 {
		t.Errorf("SendMessages.Sizes = %v, want [5 50]", cfg.SendMessages.Sizes)
	}
	// Untouched fields keep their defaults.
	if cfg.SendMessages.Trials != 10 {
		t.Errorf("SendMessages.Trials = %d, want 10", cfg.SendMessages.Trials)
	}
	if cfg.SingleGuild.Messages != 10 {
		t.Errorf("SingleGuild.Messages = %d, want 10", cfg.SingleGuild.Messages)
	}
	if cfg.SingleGuild.ThinkTime.Min.Std() != 10*time.Millisecond {
		t.Errorf("ThinkTime.Min = %v, want 10ms", cfg.SingleGuild.ThinkTime.Min.Std())
	}
	if cfg.SingleGuild.ThinkTime.Max.Std() != 20*time.Millisecond {
		t.Errorf("ThinkTime.Max = %v, want 20ms", cfg.SingleGuild.ThinkTime.Max.Std())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"secret": "hunter2",
		"timeout": "2m",
		"smoketest": {"clients": 3, "messages": 7},
		"conformance": {"identity": "c@test.org", "eventTimeout": "1s"}
	}`)

	cfg, err := Parse(data, "bench.json")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Secret != "hunter2" {
		t.Errorf("Secret = %q", cfg.Secret)
	}
	if cfg.Timeout.Std() != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout.Std())
	}
	if cfg.Smoketest.Clients != 3 || cfg.Smoketest.Messages != 7 {
		t.Errorf("Smoketest = %+v", cfg.Smoketest)
	}
	if cfg.Conformance.EventTimeout.Std() != time.Second {
		t.Errorf("Conformance.EventTimeout = %v, want 1s", cfg.Conformance.EventTimeout.Std())
	}
	if cfg.ConformanceSecret() != "hunter2" {
		t.Errorf("ConformanceSecret() = %q, want fallback to Secret", cfg.ConformanceSecret())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{"bad json", `{"server":`, "c.json"},
		{"bad yaml", "server: [unclosed", "c.yaml"},
		{"bad duration", `timeout: soon`, "c.yml"},
		{"unknown extension", "server: [", "c.conf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.path); err == nil {
				t.Error("Parse() expected error, got nil")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("smoketest:\n  clients: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(good)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Smoketest.Clients != 2 {
		t.Errorf("Smoketest.Clients = %d, want 2", cfg.Smoketest.Clients)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("smoketest:\n  clients: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Load() error = %v, want *ValidationErrors", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file expected error")
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	if err := d.UnmarshalJSON([]byte(`"150ms"`)); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 150*time.Millisecond {
		t.Errorf("d = %v, want 150ms", d.Std())
	}

	out, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"150ms"` {
		t.Errorf("MarshalJSON() = %s", out)
	}

	if err := d.UnmarshalJSON([]byte(`null`)); err != nil || d != 0 {
		t.Errorf("null should reset to zero, got %v (err %v)", d, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty server", func(c *Config) { c.Server = "" }, "server"},
		{"bad scheme", func(c *Config) { c.Server = "ftp://host" }, "server"},
		{"no host", func(c *Config) { c.Server = "http://" }, "server"},
		{"empty secret", func(c *Config) { c.Secret = "" }, "secret"},
		{"pattern without verb", func(c *Config) { c.IdentityPattern = "user@test.org" }, "identityPattern"},
		{"negative concurrency", func(c *Config) { c.Provisioning.Concurrency = -1 }, "provisioning.concurrency"},
		{"no channel name", func(c *Config) { c.Provisioning.ChannelName = "" }, "provisioning.channelName"},
		{"no sizes", func(c *Config) { c.SendMessages.Sizes = nil }, "sendMessages.sizes"},
		{"zero size", func(c *Config) { c.SendMessages.Sizes = []int{10, 0} }, "sendMessages.sizes[1]"},
		{"zero trials", func(c *Config) { c.SendMessages.Trials = 0 }, "sendMessages.trials"},
		{"zero smoketest messages", func(c *Config) { c.Smoketest.Messages = 0 }, "smoketest.messages"},
		{"think max below min", func(c *Config) { c.SingleGuild.ThinkTime.Max = 0 }, "singleGuild.thinkTime.max"},
		{"no invite", func(c *Config) { c.SingleGuild.InviteID = "" }, "singleGuild.inviteId"},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs *ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want *ValidationErrors", err)
			}
			found := false
			for _, e := range verrs.Errors {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error on field %q in %v", tt.field, err)
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := &ValidationErrors{}
	errs.Add("a", "first")
	if got := errs.Error(); got != "validation error on field 'a': first" {
		t.Errorf("single error = %q", got)
	}

	errs.Add("b", "second")
	got := errs.Error()
	if !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "2. validation error on field 'b': second") {
		t.Errorf("multi error = %q", got)
	}
}
