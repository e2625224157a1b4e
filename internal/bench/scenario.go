package bench

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/chatload/internal/chat"
	"github.com/wesleyorama2/chatload/internal/metrics"
)

// Scenario names.
const (
	ScenarioSendMessages = "send-messages"
	ScenarioSmoketest    = "smoketest"
	ScenarioSingleGuild  = "single-guild"
)

// Scenarios lists every scenario name in display order.
var Scenarios = []string{ScenarioSendMessages, ScenarioSmoketest, ScenarioSingleGuild}

// ScenarioResult is what a scenario run reports.
type ScenarioResult struct {
	ID        string    `json:"id,omitempty"`
	Scenario  string    `json:"scenario"`
	StartedAt time.Time `json:"startedAt"`
	Clients   int       `json:"clients"`

	// Sizes, Warmup and Mean are aligned: Mean[i] is the mean send duration
	// of a Sizes[i]-message probe.
	Sizes  []int       `json:"sizes"`
	Warmup TrialVector `json:"warmup,omitempty"`
	Mean   TrialVector `json:"mean"`
	Trials int         `json:"trials"`

	// Elapsed is wall-clock time of the measured part of the run. Effective
	// subtracts the mean think time per client from it.
	Elapsed     time.Duration `json:"elapsed"`
	Effective   time.Duration `json:"effective,omitempty"`
	AverageSend time.Duration `json:"averageSend"`
	ThinkTime   time.Duration `json:"thinkTime,omitempty"`
	Events      int64         `json:"events,omitempty"`

	Latency metrics.Snapshot `json:"latency"`
}

// SendMessagesOptions configures the send-messages scenario.
type SendMessagesOptions struct {
	Clients int
	Sizes   []int
	Trials  int
	Warmup  bool
}

// SmoketestOptions configures the smoketest scenario.
type SmoketestOptions struct {
	Clients  int
	Messages int
}

// SingleGuildOptions configures the single-guild scenario.
type SingleGuildOptions struct {
	Clients  int
	Messages int
	ThinkMin time.Duration
	ThinkMax time.Duration
	InviteID string
}

// Harness runs scenarios against one service.
type Harness struct {
	Provisioner *Provisioner

	// IdentityPattern is formatted with the client number, starting at 1.
	IdentityPattern string

	Concurrency int
	Logger      *zap.Logger
}

func (h *Harness) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Identities returns the identities of the first n clients.
func (h *Harness) Identities(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf(h.IdentityPattern, i+1)
	}
	return ids
}

func (h *Harness) runner(rec *metrics.Recorder, thinkMin, thinkMax time.Duration) *Runner {
	return &Runner{
		Provisioner: h.Provisioner,
		Prober: &Prober{
			Client:   h.Provisioner.Client,
			Metrics:  rec,
			ThinkMin: thinkMin,
			ThinkMax: thinkMax,
		},
		Concurrency: h.Concurrency,
		Logger:      h.Logger,
	}
}

// SendMessages runs batches of probes of every size across opts.Clients
// sessions, opts.Trials times after an optional warm-up, and reports the
// averaged duration per size.
func (h *Harness) SendMessages(ctx context.Context, opts SendMessagesOptions) (*ScenarioResult, error) {
	if opts.Clients <= 0 {
		return nil, errors.New("send-messages: clients must be positive")
	}

	rec := metrics.NewRecorder()
	runner := h.runner(rec, 0, 0)
	identities := h.Identities(opts.Clients)

	firstMeasured := 0
	if opts.Warmup {
		firstMeasured = 1
	}

	var measuredFrom time.Time
	runs := 0
	trial := func(ctx context.Context) (TrialVector, error) {
		// Warm-up sends count towards neither the latency snapshot nor Elapsed.
		if runs == firstMeasured {
			rec.Reset()
			measuredFrom = time.Now()
		}
		runs++
		v, err := runner.RunConcurrent(ctx, identities, opts.Sizes)
		if err == nil {
			h.logger().Info("trial finished",
				zap.String("scenario", ScenarioSendMessages),
				zap.Int("run", runs),
				zap.Durations("mean", v))
		}
		return v, err
	}

	started := time.Now()
	averaged, err := AverageOverTrials(ctx, trial, opts.Warmup, opts.Trials)
	if err != nil {
		return nil, fmt.Errorf("send-messages: %w", err)
	}

	return &ScenarioResult{
		Scenario:  ScenarioSendMessages,
		StartedAt: started,
		Clients:   opts.Clients,
		Sizes:     append([]int(nil), opts.Sizes...),
		Warmup:    averaged.Warmup,
		Mean:      averaged.Mean,
		Trials:    averaged.Trials,
		Elapsed:   time.Since(measuredFrom),
		Latency:   rec.Snapshot(),
	}, nil
}

// Smoketest gives every client its own guild and channel and sends
// opts.Messages messages from each, all at once.
func (h *Harness) Smoketest(ctx context.Context, opts SmoketestOptions) (*ScenarioResult, error) {
	if opts.Clients <= 0 || opts.Messages <= 0 {
		return nil, errors.New("smoketest: clients and messages must be positive")
	}

	rec := metrics.NewRecorder()
	runner := h.runner(rec, 0, 0)

	started := time.Now()
	results, err := runner.ProbeAll(ctx, h.Identities(opts.Clients), Workload{Messages: opts.Messages})
	if err != nil {
		return nil, fmt.Errorf("smoketest: %w", err)
	}
	elapsed := time.Since(started)

	var send time.Duration
	for _, res := range results {
		send += res.Send
	}
	avg := send / time.Duration(len(results))

	return &ScenarioResult{
		Scenario:    ScenarioSmoketest,
		StartedAt:   started,
		Clients:     opts.Clients,
		Sizes:       []int{opts.Messages},
		Mean:        TrialVector{avg},
		Trials:      1,
		Elapsed:     elapsed,
		AverageSend: avg,
		Latency:     rec.Snapshot(),
	}, nil
}

// SingleGuild puts every client in one shared guild with a live event
// subscription, then races each subscription against a think-time probe.
// A subscription that ends before its probe fails the whole run.
func (h *Harness) SingleGuild(ctx context.Context, opts SingleGuildOptions) (*ScenarioResult, error) {
	if opts.Clients <= 0 || opts.Messages <= 0 {
		return nil, errors.New("single-guild: clients and messages must be positive")
	}
	if opts.InviteID == "" {
		return nil, errors.New("single-guild: invite id required")
	}

	log := h.logger().With(zap.String("scenario", ScenarioSingleGuild))
	rec := metrics.NewRecorder()
	runner := h.runner(rec, opts.ThinkMin, opts.ThinkMax)
	identities := h.Identities(opts.Clients)

	owner, err := h.Provisioner.Provision(ctx, identities[0])
	if err != nil {
		return nil, fmt.Errorf("single-guild: %w", err)
	}
	if err := h.Provisioner.CreateInvite(ctx, owner, opts.InviteID); err != nil {
		return nil, fmt.Errorf("single-guild: %w", err)
	}

	targets := make([]*SessionTarget, len(identities))
	targets[0] = owner

	g, gctx := errgroup.WithContext(ctx)
	runner.limit(g)
	for i := 1; i < len(identities); i++ {
		i := i
		g.Go(func() error {
			target, err := h.Provisioner.ProvisionMember(gctx, identities[i], owner, opts.InviteID)
			if err != nil {
				return err
			}
			targets[i] = target
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("single-guild: %w", err)
	}
	log.Info("clients joined", zap.Uint64("guild_id", owner.GuildID), zap.Int("clients", len(targets)))

	streams := make([]chat.EventStream, len(targets))
	defer func() {
		for _, stream := range streams {
			if stream != nil {
				stream.Close()
			}
		}
	}()

	g, gctx = errgroup.WithContext(ctx)
	runner.limit(g)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			stream, err := h.Provisioner.Client.Subscribe(gctx, target.Session, []uint64{target.GuildID})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", target.Session.Identity, err)
			}
			streams[i] = stream
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("single-guild: %w", err)
	}

	var events atomic.Int64
	onEvent := func(chat.Event) { events.Add(1) }
	outcomes := make([]RaceOutcome, len(targets))
	workload := Workload{Messages: opts.Messages, ThinkTime: true}

	started := time.Now()

	// Races ignore Concurrency: every subscription is already open.
	g, gctx = errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			outcome, err := Race(gctx, streams[i], onEvent, func(ctx context.Context) (ProbeResult, error) {
				return runner.Prober.Probe(ctx, target, workload)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", target.Session.Identity, err)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("single-guild: %w", err)
	}
	elapsed := time.Since(started)

	var send, think time.Duration
	for _, o := range outcomes {
		send += o.Send
		think += o.ThinkTime
	}
	n := time.Duration(len(outcomes))

	return &ScenarioResult{
		Scenario:    ScenarioSingleGuild,
		StartedAt:   started,
		Clients:     opts.Clients,
		Sizes:       []int{opts.Messages},
		Mean:        TrialVector{send / n},
		Trials:      1,
		Elapsed:     elapsed,
		Effective:   elapsed - think/n,
		AverageSend: send / n,
		ThinkTime:   think / n,
		Events:      events.Load(),
		Latency:     rec.Snapshot(),
	}, nil
}
