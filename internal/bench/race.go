package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/wesleyorama2/chatload/internal/chat"
)

// OutcomeKind tells which side of a race finished first.
type OutcomeKind int

const (
	// WorkloadCompleted means the bounded workload finished while the stream was
	// still live. This is the only successful outcome.
	WorkloadCompleted OutcomeKind = iota + 1

	// StreamEndedUnexpectedly means the event stream ended or failed first.
	StreamEndedUnexpectedly
)

func (k OutcomeKind) String() string {
	switch k {
	case WorkloadCompleted:
		return "workload-completed"
	case StreamEndedUnexpectedly:
		return "stream-ended-unexpectedly"
	default:
		return "unknown"
	}
}

// RaceOutcome is the result of Race.
type RaceOutcome struct {
	Kind      OutcomeKind
	Send      time.Duration
	ThinkTime time.Duration
}

// StreamEndedError is returned with StreamEndedUnexpectedly. Err is io.EOF when
// the stream ended cleanly.
type StreamEndedError struct {
	Err error
}

func (e *StreamEndedError) Error() string {
	return fmt.Sprintf("event stream ended before workload finished: %v", e.Err)
}

func (e *StreamEndedError) Unwrap() error {
	return e.Err
}

// WorkloadFunc is the bounded side of a race.
type WorkloadFunc func(ctx context.Context) (ProbeResult, error)

type workloadResult struct {
	res ProbeResult
	err error
}

// Race drains stream and runs workload concurrently.
//
// If the workload finishes first, the drain is cancelled and waited for, so
// onEvent is never called after Race returns; a workload error is returned as
// is. If the drain finishes first, for any reason, the workload is cancelled
// and its progress discarded, and Race returns StreamEndedUnexpectedly with a
// *StreamEndedError. stream.Next must return once its ctx is done.
func Race(ctx context.Context, stream chat.EventStream, onEvent func(chat.Event), workload WorkloadFunc) (RaceOutcome, error) {
	drainCtx, cancelDrain := context.WithCancel(ctx)
	defer cancelDrain()
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	drained := make(chan error, 1)
	go func() {
		for {
			ev, err := stream.Next(drainCtx)
			if err != nil {
				drained <- err
				return
			}
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}()

	worked := make(chan workloadResult, 1)
	go func() {
		res, err := workload(workCtx)
		worked <- workloadResult{res: res, err: err}
	}()

	select {
	case w := <-worked:
		cancelDrain()
		<-drained
		if w.err != nil {
			return RaceOutcome{}, w.err
		}
		return RaceOutcome{Kind: WorkloadCompleted, Send: w.res.Send, ThinkTime: w.res.ThinkTime}, nil

	case err := <-drained:
		cancelWork()
		<-worked
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RaceOutcome{}, ctxErr
		}
		return RaceOutcome{Kind: StreamEndedUnexpectedly}, &StreamEndedError{Err: err}
	}
}
