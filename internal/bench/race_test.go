package bench

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/chatload/internal/chat"
	"github.com/wesleyorama2/chatload/internal/chat/chattest"
)

func TestRace_WorkloadFirstStopsDrain(t *testing.T) {
	stream := chattest.NewStream()
	var seen atomic.Int64
	onEvent := func(chat.Event) { seen.Add(1) }

	sends := 0
	workload := func(ctx context.Context) (ProbeResult, error) {
		for i := 0; i < 5; i++ {
			stream.Push(chat.Event{Type: "message-sent"})
			sends++
		}
		return ProbeResult{Send: 5 * time.Millisecond, ThinkTime: 2 * time.Second, Messages: 5}, nil
	}

	outcome, err := Race(context.Background(), stream, onEvent, workload)
	require.NoError(t, err)
	assert.Equal(t, WorkloadCompleted, outcome.Kind)
	assert.Equal(t, 5*time.Millisecond, outcome.Send)
	assert.Equal(t, 2*time.Second, outcome.ThinkTime)
	assert.Equal(t, 5, sends)

	after := seen.Load()
	for i := 0; i < 10; i++ {
		stream.Push(chat.Event{Type: "late"})
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, seen.Load(), "no callbacks once the race resolved")
	assert.False(t, stream.Closed(), "the caller owns the stream")
}

func TestRace_StreamEndFirstIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		end     error
		wantErr error
	}{
		{"clean end", nil, io.EOF},
		{"stream error", &chat.StreamError{Message: "kicked"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := chattest.NewStream()
			stream.Push(chat.Event{Type: "message-sent"})
			stream.End(tt.end)

			var cancelled atomic.Bool
			workload := func(ctx context.Context) (ProbeResult, error) {
				<-ctx.Done()
				cancelled.Store(true)
				return ProbeResult{Send: time.Second, Messages: 3}, nil
			}

			var seen atomic.Int64
			outcome, err := Race(context.Background(), stream, func(chat.Event) { seen.Add(1) }, workload)

			assert.Equal(t, StreamEndedUnexpectedly, outcome.Kind)
			assert.Zero(t, outcome.Send, "partial progress is discarded")
			assert.True(t, cancelled.Load(), "workload is cancelled")
			assert.Equal(t, int64(1), seen.Load())

			var ended *StreamEndedError
			require.True(t, errors.As(err, &ended))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			var streamErr *chat.StreamError
			if tt.end != nil {
				assert.True(t, errors.As(err, &streamErr))
			}
		})
	}
}

func TestRace_WorkloadErrorIsReturned(t *testing.T) {
	stream := chattest.NewStream()
	boom := &ProbeError{Index: 2, Err: errors.New("boom")}

	outcome, err := Race(context.Background(), stream, nil, func(ctx context.Context) (ProbeResult, error) {
		return ProbeResult{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, outcome.Kind)
}

func TestRace_ParentCancellationStopsBoth(t *testing.T) {
	stream := chattest.NewStream()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var outcome RaceOutcome
	var err error
	go func() {
		defer close(done)
		outcome, err = Race(ctx, stream, nil, func(ctx context.Context) (ProbeResult, error) {
			<-ctx.Done()
			return ProbeResult{}, ctx.Err()
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Race did not return after the parent context expired")
	}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEqual(t, WorkloadCompleted, outcome.Kind)
}

func TestRace_ProbeAgainstFakeService(t *testing.T) {
	svc := chattest.New()
	target := provisionOne(t, svc)
	stream, err := svc.Subscribe(context.Background(), target.Session, []uint64{target.GuildID})
	require.NoError(t, err)
	defer stream.Close()

	p := &Prober{Client: svc, ThinkMin: time.Millisecond, ThinkMax: time.Millisecond}
	outcome, err := Race(context.Background(), stream, nil, func(ctx context.Context) (ProbeResult, error) {
		return p.Probe(ctx, target, Workload{Messages: 10, ThinkTime: true})
	})
	require.NoError(t, err)
	assert.Equal(t, WorkloadCompleted, outcome.Kind)
	assert.Equal(t, 9*time.Millisecond, outcome.ThinkTime)
	assert.Equal(t, 10, svc.Messages(target.GuildID, target.ChannelID))
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "workload-completed", WorkloadCompleted.String())
	assert.Equal(t, "stream-ended-unexpectedly", StreamEndedUnexpectedly.String())
	assert.Equal(t, "unknown", OutcomeKind(0).String())
}
