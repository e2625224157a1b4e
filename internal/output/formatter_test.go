package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/chatload/internal/bench"
	"github.com/wesleyorama2/chatload/internal/conformance"
	"github.com/wesleyorama2/chatload/internal/metrics"
	"github.com/wesleyorama2/chatload/internal/storage"
)

func sendMessagesResult() *bench.ScenarioResult {
	rec := metrics.NewRecorder()
	rec.Record("send-message", 2*time.Millisecond, true)
	rec.Record("send-message", 4*time.Millisecond, true)
	return &bench.ScenarioResult{
		ID:       "run-1",
		Scenario: bench.ScenarioSendMessages,
		Clients:  4,
		Sizes:    []int{10, 1000},
		Warmup:   bench.TrialVector{30 * time.Millisecond, 2 * time.Second},
		Mean:     bench.TrialVector{20 * time.Millisecond, 1500 * time.Millisecond},
		Trials:   10,
		Latency:  rec.Snapshot(),
	}
}

func TestFormatScenario_SendMessages(t *testing.T) {
	out := NewFormatter(true, true).FormatScenario(sendMessagesResult())

	for _, want := range []string{
		"send-messages - 4 clients",
		"run-1",
		"1,000",
		"20ms",
		"1.5s",
		"2.0s",
		"Latency distribution:",
		"send-message (2 calls):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatScenario_SingleGuild(t *testing.T) {
	r := &bench.ScenarioResult{
		Scenario:    bench.ScenarioSingleGuild,
		Clients:     1000,
		Elapsed:     12 * time.Second,
		ThinkTime:   5 * time.Second,
		Effective:   7 * time.Second,
		AverageSend: 3 * time.Millisecond,
		Events:      10000,
	}

	out := NewFormatter(false, true).FormatScenario(r)
	for _, want := range []string{"single-guild - 1000 clients", "Effective:", "7.0s", "10,000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Latency distribution:") {
		t.Error("empty snapshot should not print a latency distribution")
	}
}

func TestFormatReport(t *testing.T) {
	report := &conformance.Report{
		Identity: "c@test.org",
		Elapsed:  1200 * time.Millisecond,
		Steps: []conformance.StepResult{
			{Name: "auth", Status: conformance.StatusPassed},
			{Name: "send-message", Status: conformance.StatusFailed, Error: "status 500"},
			{Name: "compare-channel-message", Status: conformance.StatusSkipped},
		},
	}

	out := NewFormatter(false, true).FormatReport(report)
	for _, want := range []string{
		"conformance - c@test.org",
		"✓ auth",
		"✗ send-message: status 500",
		"- compare-channel-message (skipped)",
		"1 passed, 1 failed, 1 skipped in 1.2s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	f := NewFormatter(false, true)

	if got := f.FormatHistory(nil); got != "no runs recorded\n" {
		t.Errorf("FormatHistory(nil) = %q", got)
	}

	runs := []storage.Run{
		{ID: "b", SavedAt: time.Now(), Result: sendMessagesResult()},
		{ID: "a", SavedAt: time.Now(), Result: &bench.ScenarioResult{Scenario: bench.ScenarioSmoketest, Clients: 2, Elapsed: 3 * time.Second}},
	}
	out := f.FormatHistory(runs)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "send-messages") || !strings.Contains(lines[1], "1.5s") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "smoketest") || !strings.Contains(lines[2], "3.0s") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2h 05m 03s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{750 * time.Microsecond, "750µs"},
		{12 * time.Millisecond, "12ms"},
		{2500 * time.Millisecond, "2.50s"},
		{3 * time.Minute, "3.0m"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.in); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	r := sendMessagesResult()

	var buf bytes.Buffer
	if err := Encode(&buf, FormatJSON, r); err != nil {
		t.Fatalf("Encode(json) error = %v", err)
	}
	var decoded bench.ScenarioResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Scenario != bench.ScenarioSendMessages || len(decoded.Mean) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := Encode(&buf, FormatYAML, r); err != nil {
		t.Fatalf("Encode(yaml) error = %v", err)
	}
	if !strings.Contains(buf.String(), "scenario: send-messages") {
		t.Errorf("yaml output:\n%s", buf.String())
	}

	if err := Encode(&buf, FormatText, r); err == nil {
		t.Error("Encode(text) expected error")
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "")
	if ColorEnabled(&buf) {
		t.Error("a buffer is not a terminal")
	}

	t.Setenv("FORCE_COLOR", "1")
	if !ColorEnabled(&buf) {
		t.Error("FORCE_COLOR should enable colors")
	}

	t.Setenv("NO_COLOR", "1")
	if ColorEnabled(&buf) {
		t.Error("NO_COLOR should win over FORCE_COLOR")
	}
}

func TestIcons(t *testing.T) {
	if SuccessIcon(true) != "✓" || ErrorIcon(true) != "✗" || SkipIcon(true) != "-" {
		t.Error("plain icons changed")
	}
}
