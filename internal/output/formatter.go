package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesleyorama2/chatload/internal/bench"
	"github.com/wesleyorama2/chatload/internal/conformance"
	"github.com/wesleyorama2/chatload/internal/metrics"
	"github.com/wesleyorama2/chatload/internal/storage"
)

const ruleWidth = 56

// Formatter renders results as human-readable text.
type Formatter struct {
	Verbose bool
	NoColor bool

	colors *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}
	return &Formatter{Verbose: verbose, NoColor: noColor, colors: colors}
}

func (f *Formatter) header(buf *strings.Builder, title string) {
	rule := strings.Repeat("━", ruleWidth)
	buf.WriteString(f.colors.Title.Sprint(rule) + "\n")
	buf.WriteString(f.colors.Title.Sprint(title) + "\n")
	buf.WriteString(f.colors.Title.Sprint(rule) + "\n")
}

func (f *Formatter) field(buf *strings.Builder, label string, value string) {
	buf.WriteString(fmt.Sprintf("%s %s\n", f.colors.Label.Sprintf("%-14s", label+":"), f.colors.Value.Sprint(value)))
}

// FormatScenario renders a scenario result.
func (f *Formatter) FormatScenario(r *bench.ScenarioResult) string {
	var buf strings.Builder

	f.header(&buf, fmt.Sprintf("%s - %d clients", r.Scenario, r.Clients))
	if r.ID != "" {
		f.field(&buf, "Run", r.ID)
	}
	if !r.StartedAt.IsZero() {
		f.field(&buf, "Started", r.StartedAt.Format(time.RFC3339))
	}

	switch r.Scenario {
	case bench.ScenarioSendMessages:
		f.field(&buf, "Trials", fmt.Sprintf("%d", r.Trials))
		buf.WriteString("\n")
		buf.WriteString(f.colors.Highlight.Sprint("Mean send duration per batch:") + "\n")
		buf.WriteString(fmt.Sprintf("  %10s  %12s  %12s\n", "messages", "warm-up", "mean"))
		for i, size := range r.Sizes {
			warm := "-"
			if i < len(r.Warmup) {
				warm = FormatDuration(r.Warmup[i])
			}
			mean := "-"
			if i < len(r.Mean) {
				mean = FormatDuration(r.Mean[i])
			}
			buf.WriteString(fmt.Sprintf("  %10s  %12s  %12s\n", FormatNumber(int64(size)), warm, mean))
		}
	case bench.ScenarioSingleGuild:
		f.field(&buf, "Elapsed", FormatDuration(r.Elapsed))
		f.field(&buf, "Think time", FormatDuration(r.ThinkTime))
		f.field(&buf, "Effective", FormatDuration(r.Effective))
		f.field(&buf, "Average send", FormatDuration(r.AverageSend))
		f.field(&buf, "Events", FormatNumber(r.Events))
	default:
		f.field(&buf, "Elapsed", FormatDuration(r.Elapsed))
		f.field(&buf, "Average send", FormatDuration(r.AverageSend))
	}

	buf.WriteString("\n")
	f.formatSnapshot(&buf, r.Latency)
	return buf.String()
}

func (f *Formatter) formatSnapshot(buf *strings.Builder, s metrics.Snapshot) {
	f.field(buf, "Calls", FormatNumber(s.Total))

	successRate := 1.0 - s.ErrorRate
	rateColor := f.colors.Success
	if successRate < 0.99 {
		rateColor = f.colors.Warn
	}
	if successRate < 0.95 {
		rateColor = f.colors.Error
	}
	if s.Total == 0 {
		rateColor = f.colors.Value
	}
	buf.WriteString(fmt.Sprintf("%s %s\n", f.colors.Label.Sprintf("%-14s", "Success rate:"), rateColor.Sprintf("%.1f%%", successRate*100)))
	if s.Rate > 0 {
		f.field(buf, "Throughput", fmt.Sprintf("%.1f calls/s", s.Rate))
	}

	if s.Latency.Count == 0 {
		return
	}
	buf.WriteString("\n")
	buf.WriteString(f.colors.Highlight.Sprint("Latency distribution:") + "\n")
	writeLatency(buf, s.Latency)

	if !f.Verbose {
		return
	}
	for _, op := range s.Ops {
		buf.WriteString("\n")
		buf.WriteString(f.colors.Highlight.Sprintf("%s (%s calls):", op.Op, FormatNumber(op.Latency.Count)) + "\n")
		writeLatency(buf, op.Latency)
	}
}

func writeLatency(buf *strings.Builder, l metrics.LatencyStats) {
	buf.WriteString(fmt.Sprintf("  Min:   %s\n", FormatDurationShort(l.Min)))
	buf.WriteString(fmt.Sprintf("  P50:   %s\n", FormatDurationShort(l.P50)))
	buf.WriteString(fmt.Sprintf("  P90:   %s\n", FormatDurationShort(l.P90)))
	buf.WriteString(fmt.Sprintf("  P95:   %s\n", FormatDurationShort(l.P95)))
	buf.WriteString(fmt.Sprintf("  P99:   %s\n", FormatDurationShort(l.P99)))
	buf.WriteString(fmt.Sprintf("  Max:   %s\n", FormatDurationShort(l.Max)))
}

// FormatReport renders a conformance report, one line per step.
func (f *Formatter) FormatReport(r *conformance.Report) string {
	var buf strings.Builder

	f.header(&buf, fmt.Sprintf("conformance - %s", r.Identity))
	for _, step := range r.Steps {
		switch step.Status {
		case conformance.StatusPassed:
			line := fmt.Sprintf("%s %s", SuccessIcon(f.NoColor), step.Name)
			if f.Verbose {
				line += fmt.Sprintf(" (%s)", FormatDurationShort(step.Elapsed))
			}
			buf.WriteString(line + "\n")
		case conformance.StatusFailed:
			buf.WriteString(fmt.Sprintf("%s %s: %s\n", ErrorIcon(f.NoColor), f.colors.Error.Sprint(step.Name), step.Error))
		default:
			buf.WriteString(fmt.Sprintf("%s %s\n", SkipIcon(f.NoColor), f.colors.Skipped.Sprintf("%s (skipped)", step.Name)))
		}
	}

	buf.WriteString("\n")
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped in %s", r.Passed(), r.Failed(), r.Skipped(), FormatDuration(r.Elapsed))
	if r.OK() {
		buf.WriteString(f.colors.Success.Sprint(summary) + "\n")
	} else {
		buf.WriteString(f.colors.Error.Sprint(summary) + "\n")
	}
	return buf.String()
}

// FormatHistory renders stored runs as a table, one row per run.
func (f *Formatter) FormatHistory(runs []storage.Run) string {
	if len(runs) == 0 {
		return "no runs recorded\n"
	}

	var buf strings.Builder
	buf.WriteString(f.colors.Label.Sprintf("%-36s  %-20s  %-13s  %7s  %12s", "ID", "SAVED", "SCENARIO", "CLIENTS", "SUMMARY") + "\n")
	for _, run := range runs {
		scenario, clients, summary := "-", 0, "-"
		if r := run.Result; r != nil {
			scenario, clients, summary = r.Scenario, r.Clients, headline(r)
		}
		buf.WriteString(fmt.Sprintf("%-36s  %-20s  %-13s  %7d  %12s\n",
			run.ID, run.SavedAt.Local().Format("2006-01-02 15:04:05"), scenario, clients, summary))
	}
	return buf.String()
}

// headline is the single number that best summarises a run.
func headline(r *bench.ScenarioResult) string {
	switch r.Scenario {
	case bench.ScenarioSendMessages:
		if len(r.Mean) == 0 {
			return "-"
		}
		return FormatDuration(r.Mean[len(r.Mean)-1])
	case bench.ScenarioSingleGuild:
		return FormatDuration(r.Effective)
	default:
		return FormatDuration(r.Elapsed)
	}
}

// FormatDuration formats a duration in a human-readable format.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// FormatDurationShort formats a latency, keeping sub-millisecond precision.
func FormatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// FormatNumber formats a number with thousands separators.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
