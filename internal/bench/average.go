package bench

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTrialCount is returned for a trial count below one.
	ErrInvalidTrialCount = errors.New("trial count must be at least 1")

	// ErrNoTrials is returned by Mean before any vector was added.
	ErrNoTrials = errors.New("no trials recorded")

	// ErrVectorLength is returned when vectors of different lengths are folded together.
	ErrVectorLength = errors.New("trial vector length mismatch")
)

// RunningAverage sums trial vectors element-wise. The division happens once, in Mean.
// The zero value is ready to use.
type RunningAverage struct {
	sums  []time.Duration
	count int
}

// Add folds v into the sums. The first vector fixes the length.
func (a *RunningAverage) Add(v TrialVector) error {
	if a.count == 0 {
		a.sums = make([]time.Duration, len(v))
	} else if len(v) != len(a.sums) {
		return fmt.Errorf("%w: got %d, want %d", ErrVectorLength, len(v), len(a.sums))
	}
	for i, d := range v {
		a.sums[i] += d
	}
	a.count++
	return nil
}

// Count returns the number of vectors added.
func (a *RunningAverage) Count() int {
	return a.count
}

// Mean returns the element-wise mean, using integer division.
func (a *RunningAverage) Mean() (TrialVector, error) {
	if a.count == 0 {
		return nil, ErrNoTrials
	}
	mean := make(TrialVector, len(a.sums))
	for i, sum := range a.sums {
		mean[i] = sum / time.Duration(a.count)
	}
	return mean, nil
}

// TrialFunc runs one trial.
type TrialFunc func(ctx context.Context) (TrialVector, error)

// Averaged is the result of AverageOverTrials.
type Averaged struct {
	Mean TrialVector `json:"mean"`

	// Warmup is the untimed first pass, nil when warm-up was off. It never
	// contributes to Mean.
	Warmup TrialVector `json:"warmup,omitempty"`

	Trials int `json:"trials"`
}

// AverageOverTrials runs trial once as warm-up when warmup is set, then count
// more times, and returns the element-wise mean of the counted runs.
func AverageOverTrials(ctx context.Context, trial TrialFunc, warmup bool, count int) (Averaged, error) {
	if count <= 0 {
		return Averaged{}, ErrInvalidTrialCount
	}

	var out Averaged
	if warmup {
		v, err := trial(ctx)
		if err != nil {
			return Averaged{}, fmt.Errorf("warm-up: %w", err)
		}
		out.Warmup = v
	}

	var avg RunningAverage
	for i := 0; i < count; i++ {
		v, err := trial(ctx)
		if err != nil {
			return Averaged{}, fmt.Errorf("trial %d: %w", i+1, err)
		}
		if err := avg.Add(v); err != nil {
			return Averaged{}, fmt.Errorf("trial %d: %w", i+1, err)
		}
	}

	mean, err := avg.Mean()
	if err != nil {
		return Averaged{}, err
	}
	out.Mean = mean
	out.Trials = count
	return out, nil
}
