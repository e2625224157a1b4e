package bench

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/wesleyorama2/chatload/internal/chat"
	"github.com/wesleyorama2/chatload/internal/metrics"
)

// Default think-time bounds, inclusive.
const (
	DefaultThinkMin = 200 * time.Millisecond
	DefaultThinkMax = 1000 * time.Millisecond
)

// Workload describes one probe.
type Workload struct {
	Messages  int
	ThinkTime bool
}

// ProbeResult is the outcome of one probe. Send never includes think time.
type ProbeResult struct {
	Send      time.Duration `json:"send"`
	ThinkTime time.Duration `json:"thinkTime"`
	Messages  int           `json:"messages"`
}

// ProbeError reports the send that aborted a probe.
type ProbeError struct {
	Index     int
	GuildID   uint64
	ChannelID uint64
	Err       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("send message %d to guild %d channel %d: %v", e.Index, e.GuildID, e.ChannelID, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Prober sends timed message batches through one session at a time.
type Prober struct {
	Client chat.Client

	// Metrics, when set, receives the latency of every send.
	Metrics *metrics.Recorder

	// ThinkMin and ThinkMax bound the pause between sends when a workload asks
	// for think time. Zero values select the defaults.
	ThinkMin time.Duration
	ThinkMax time.Duration
}

// Probe sends w.Messages messages to target sequentially. The payload of message
// i is its decimal index. Any failed send aborts the probe and no result is
// returned.
func (p *Prober) Probe(ctx context.Context, target *SessionTarget, w Workload) (ProbeResult, error) {
	var result ProbeResult

	for i := 0; i < w.Messages; i++ {
		req := chat.SendMessage(target.GuildID, target.ChannelID, strconv.Itoa(i))

		start := time.Now()
		_, err := p.Client.Call(ctx, target.Session, req)
		took := time.Since(start)

		if p.Metrics != nil {
			p.Metrics.Record(string(chat.OpSendMessage), took, err == nil)
		}
		if err != nil {
			return ProbeResult{}, &ProbeError{Index: i, GuildID: target.GuildID, ChannelID: target.ChannelID, Err: err}
		}
		result.Send += took

		// No pause after the last send.
		if w.ThinkTime && i < w.Messages-1 {
			pause := p.thinkTime()
			if err := sleep(ctx, pause); err != nil {
				return ProbeResult{}, &ProbeError{Index: i, GuildID: target.GuildID, ChannelID: target.ChannelID, Err: err}
			}
			result.ThinkTime += pause
		}
	}

	result.Messages = w.Messages
	return result, nil
}

// thinkTime picks a uniform duration in [ThinkMin, ThinkMax].
func (p *Prober) thinkTime() time.Duration {
	lo, hi := p.ThinkMin, p.ThinkMax
	if lo == 0 && hi == 0 {
		lo, hi = DefaultThinkMin, DefaultThinkMax
	}
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
