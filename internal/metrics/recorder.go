// Package metrics records call latencies into HDR histograms.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1µs to 1h, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Recorder collects latencies for every call, overall and per operation.
//
// Recorder is safe for concurrent use. Counters are atomic; histograms are
// guarded by a mutex because hdrhistogram.Histogram is not goroutine-safe.
type Recorder struct {
	mu      sync.Mutex
	overall *hdrhistogram.Histogram
	perOp   map[string]*hdrhistogram.Histogram

	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64

	startTime time.Time
}

// NewRecorder creates an empty recorder. Elapsed time in snapshots is measured
// from this call.
func NewRecorder() *Recorder {
	return &Recorder{
		overall:   newHistogram(),
		perOp:     make(map[string]*hdrhistogram.Histogram),
		startTime: time.Now(),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
}

// Record adds one call latency. An empty op only updates the overall histogram.
func (r *Recorder) Record(op string, d time.Duration, success bool) {
	micros := d.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	r.mu.Lock()
	r.overall.RecordValue(micros)
	if op != "" {
		hist, ok := r.perOp[op]
		if !ok {
			hist = newHistogram()
			r.perOp[op] = hist
		}
		hist.RecordValue(micros)
	}
	r.mu.Unlock()

	r.total.Add(1)
	if success {
		r.success.Add(1)
	} else {
		r.failed.Add(1)
	}
}

// Snapshot returns a point-in-time view of everything recorded so far.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	latency := statsOf(r.overall)
	ops := make([]OpStats, 0, len(r.perOp))
	for name, hist := range r.perOp {
		ops = append(ops, OpStats{Op: name, Latency: statsOf(hist)})
	}
	r.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].Op < ops[j].Op })

	elapsed := time.Since(r.startTime)
	total := r.total.Load()
	failed := r.failed.Load()

	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(total) / elapsed.Seconds()
	}
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return Snapshot{
		Total:     total,
		Success:   r.success.Load(),
		Failed:    failed,
		Latency:   latency,
		Ops:       ops,
		Rate:      rate,
		ErrorRate: errorRate,
		Elapsed:   elapsed,
	}
}

// Reset clears every histogram and counter and restarts the clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.overall.Reset()
	r.perOp = make(map[string]*hdrhistogram.Histogram)
	r.startTime = time.Now()
	r.mu.Unlock()

	r.total.Store(0)
	r.success.Store(0)
	r.failed.Store(0)
}

func statsOf(hist *hdrhistogram.Histogram) LatencyStats {
	if hist.TotalCount() == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean()) * time.Microsecond,
		StdDev: time.Duration(hist.StdDev()) * time.Microsecond,
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}

// Snapshot is a point-in-time view of a Recorder.
type Snapshot struct {
	Total     int64         `json:"total"`
	Success   int64         `json:"success"`
	Failed    int64         `json:"failed"`
	Latency   LatencyStats  `json:"latency"`
	Ops       []OpStats     `json:"ops,omitempty"`
	Rate      float64       `json:"rate"`
	ErrorRate float64       `json:"errorRate"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Op returns the stats for a single operation, if any were recorded.
func (s Snapshot) Op(name string) (LatencyStats, bool) {
	for _, op := range s.Ops {
		if op.Op == name {
			return op.Latency, true
		}
	}
	return LatencyStats{}, false
}

// OpStats is the latency breakdown of one operation.
type OpStats struct {
	Op      string       `json:"op"`
	Latency LatencyStats `json:"latency"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}
