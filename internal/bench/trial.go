package bench

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TrialVector holds one duration per workload size, aligned with the sizes the
// trial was run with.
type TrialVector []time.Duration

// SessionProvisioner prepares one identity. *Provisioner implements it.
type SessionProvisioner interface {
	Provision(ctx context.Context, identity string) (*SessionTarget, error)
}

// MessageProber runs one probe. *Prober implements it.
type MessageProber interface {
	Probe(ctx context.Context, target *SessionTarget, w Workload) (ProbeResult, error)
}

// Runner fans probes out over many sessions.
type Runner struct {
	Provisioner SessionProvisioner
	Prober      MessageProber

	// Concurrency caps the goroutines provisioning or probing at once. Zero or
	// negative means one goroutine per identity.
	Concurrency int

	Logger *zap.Logger
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// RunConcurrent provisions every identity, then runs one probe per size on each
// session, smallest size first. The result holds, for each entry of sizes, the
// sum of that size's send durations across sessions divided by the number of
// sessions. Any failure fails the whole run.
func (r *Runner) RunConcurrent(ctx context.Context, identities []string, sizes []int) (TrialVector, error) {
	if len(sizes) == 0 {
		return nil, errors.New("no workload sizes")
	}
	for _, size := range sizes {
		if size <= 0 {
			return nil, fmt.Errorf("invalid workload size %d", size)
		}
	}

	targets, err := r.ProvisionAll(ctx, identities)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sizes[order[a]] < sizes[order[b]] })

	// Each goroutine owns one row; rows are folded after the join.
	rows := make([]TrialVector, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	r.limit(g)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			row := make(TrialVector, len(sizes))
			for _, idx := range order {
				res, err := r.Prober.Probe(gctx, target, Workload{Messages: sizes[idx]})
				if err != nil {
					return fmt.Errorf("%s: %w", target.Session.Identity, err)
				}
				row[idx] = res.Send
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var avg RunningAverage
	for _, row := range rows {
		if err := avg.Add(row); err != nil {
			return nil, err
		}
	}
	return avg.Mean()
}

// ProvisionAll provisions every identity concurrently. The result is aligned
// with identities.
func (r *Runner) ProvisionAll(ctx context.Context, identities []string) ([]*SessionTarget, error) {
	if len(identities) == 0 {
		return nil, errors.New("no identities")
	}

	targets := make([]*SessionTarget, len(identities))

	g, gctx := errgroup.WithContext(ctx)
	r.limit(g)
	for i, identity := range identities {
		i, identity := i, identity
		g.Go(func() error {
			target, err := r.Provisioner.Provision(gctx, identity)
			if err != nil {
				return err
			}
			targets[i] = target
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger().Debug("provisioned sessions", zap.Int("sessions", len(targets)))
	return targets, nil
}

// ProbeAll provisions every identity and runs one probe of w on each session.
// The results are aligned with identities.
func (r *Runner) ProbeAll(ctx context.Context, identities []string, w Workload) ([]ProbeResult, error) {
	targets, err := r.ProvisionAll(ctx, identities)
	if err != nil {
		return nil, err
	}
	return r.ProbeTargets(ctx, targets, w)
}

// ProbeTargets runs one probe of w on each already provisioned target.
func (r *Runner) ProbeTargets(ctx context.Context, targets []*SessionTarget, w Workload) ([]ProbeResult, error) {
	results := make([]ProbeResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	r.limit(g)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			res, err := r.Prober.Probe(gctx, target, w)
			if err != nil {
				return fmt.Errorf("%s: %w", target.Session.Identity, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) limit(g *errgroup.Group) {
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
}
