// Package scheduler drives per-segment synthesis through a bounded
// worker pool. Each Scheduler instance owns its pool for the duration
// of one Run; there is no process-wide state.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcanadraconi/audiomax/internal/progress"
	"github.com/arcanadraconi/audiomax/internal/synth"
)

// Segment is one unit of synthesis work, dispatched in index order.
type Segment struct {
	Index int
	Text  string
}

// Result records the outcome of one segment. At most one Result exists
// per index; a retry overwrites the previous entry.
type Result struct {
	Index int
	Audio synth.Result
	Err   error
}

// GenerateFunc synthesizes one segment, reporting fractional progress
// in [0,100] through onProgress before returning.
type GenerateFunc func(ctx context.Context, seg Segment, onProgress func(pct float64)) (synth.Result, error)

// Scheduler fans segments out to a fixed number of concurrent
// generation slots and collects results keyed by segment index.
type Scheduler struct {
	maxConcurrency int
	callTimeout    time.Duration
	logger         *slog.Logger
}

func New(maxConcurrency int, callTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Scheduler{
		maxConcurrency: maxConcurrency,
		callTimeout:    callTimeout,
		logger:         logger.With(slog.String("component", "scheduler")),
	}
}

// Run processes every segment and returns once each one has either
// completed or failed. A segment failure is recorded in its Result and
// never aborts the remaining segments. The returned error is non-nil
// only when ctx is cancelled, in which case undispatched segments are
// absent from the map.
//
// onProgress is invoked on every per-segment progress event and every
// completion; the overall percentage it carries is monotonically
// non-decreasing for the lifetime of the run. It may be nil.
func (s *Scheduler) Run(ctx context.Context, segments []Segment, generate GenerateFunc, onProgress func(progress.Snapshot)) (map[int]Result, error) {
	results := make(map[int]Result, len(segments))
	if len(segments) == 0 {
		return results, nil
	}

	workers := s.maxConcurrency
	if workers > len(segments) {
		workers = len(segments)
	}

	// Pre-filled FIFO channel: dispatch order follows ascending index.
	jobs := make(chan Segment, len(segments))
	for _, seg := range segments {
		jobs <- seg
	}
	close(jobs)

	track := &tracker{
		perSegment: make(map[int]float64, len(segments)),
		total:      len(segments),
		onProgress: onProgress,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := s.generateOne(ctx, seg, generate, track)
				mu.Lock()
				results[seg.Index] = res
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return results, ctx.Err()
}

func (s *Scheduler) generateOne(ctx context.Context, seg Segment, generate GenerateFunc, track *tracker) Result {
	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	audio, err := generate(callCtx, seg, func(pct float64) {
		track.report(seg.Index, pct)
	})
	if err != nil {
		s.logger.Warn("segment generation failed",
			slog.Int("segment", seg.Index),
			slog.String("error", err.Error()))
		track.complete(seg.Index, false)
		return Result{Index: seg.Index, Err: err}
	}

	track.complete(seg.Index, true)
	return Result{Index: seg.Index, Audio: audio}
}

// tracker holds the latest per-segment progress values and emits
// snapshots whose overall percentage never regresses. Snapshot reads
// tolerate concurrent in-flight updates; they are advisory telemetry.
type tracker struct {
	mu         sync.Mutex
	perSegment map[int]float64
	total      int
	highWater  float64
	onProgress func(progress.Snapshot)
}

func (t *tracker) report(index int, pct float64) {
	t.mu.Lock()
	t.perSegment[index] = pct
	t.emitLocked()
	t.mu.Unlock()
}

func (t *tracker) complete(index int, ok bool) {
	t.mu.Lock()
	if ok {
		t.perSegment[index] = 100
	}
	t.emitLocked()
	t.mu.Unlock()
}

func (t *tracker) emitLocked() {
	if t.onProgress == nil {
		return
	}
	overall := progress.Overall(t.perSegment, t.total)
	if overall < t.highWater {
		overall = t.highWater
	}
	t.highWater = overall

	per := make(map[int]float64, len(t.perSegment))
	for k, v := range t.perSegment {
		per[k] = v
	}
	t.onProgress(progress.Snapshot{PerSegment: per, Overall: overall})
}
