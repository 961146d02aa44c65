package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arcanadraconi/audiomax/internal/progress"
	"github.com/arcanadraconi/audiomax/internal/synth"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func makeSegments(n int) []Segment {
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{Index: i, Text: fmt.Sprintf("segment %d", i)}
	}
	return segs
}

func TestBoundedConcurrency(t *testing.T) {
	const maxConcurrency = 3
	var active, highWater int64

	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		cur := atomic.AddInt64(&active, 1)
		for {
			hw := atomic.LoadInt64(&highWater)
			if cur <= hw || atomic.CompareAndSwapInt64(&highWater, hw, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return synth.Result{Audio: []byte{byte(seg.Index)}}, nil
	}

	s := New(maxConcurrency, 0, newLogger())
	results, err := s.Run(context.Background(), makeSegments(12), generate, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
	if hw := atomic.LoadInt64(&highWater); hw > maxConcurrency {
		t.Fatalf("observed %d concurrent generations, limit is %d", hw, maxConcurrency)
	}
}

func TestResultsKeyedByIndexOutOfOrder(t *testing.T) {
	// Earlier segments take longer, so completion order inverts
	// dispatch order.
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		time.Sleep(time.Duration(5-seg.Index) * 5 * time.Millisecond)
		return synth.Result{Audio: []byte{byte(seg.Index)}}, nil
	}

	s := New(5, 0, newLogger())
	results, err := s.Run(context.Background(), makeSegments(5), generate, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		res, ok := results[i]
		if !ok {
			t.Fatalf("missing result for index %d", i)
		}
		if res.Err != nil || len(res.Audio.Audio) != 1 || res.Audio.Audio[0] != byte(i) {
			t.Fatalf("wrong result at index %d: %+v", i, res)
		}
	}
}

func TestDispatchOrderAscending(t *testing.T) {
	var mu sync.Mutex
	var order []int
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		mu.Lock()
		order = append(order, seg.Index)
		mu.Unlock()
		return synth.Result{}, nil
	}

	s := New(1, 0, newLogger())
	if _, err := s.Run(context.Background(), makeSegments(6), generate, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, idx := range order {
		if idx != i {
			t.Fatalf("dispatch order not ascending: %v", order)
		}
	}
}

func TestSegmentFailureDoesNotAbortSiblings(t *testing.T) {
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		if seg.Index == 2 {
			return synth.Result{}, fmt.Errorf("provider rejected segment")
		}
		return synth.Result{Audio: []byte{byte(seg.Index)}}, nil
	}

	s := New(2, 0, newLogger())
	results, err := s.Run(context.Background(), makeSegments(4), generate, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[2].Err == nil {
		t.Fatal("expected error recorded for segment 2")
	}
	for _, i := range []int{0, 1, 3} {
		if results[i].Err != nil {
			t.Fatalf("segment %d should have succeeded: %v", i, results[i].Err)
		}
	}
}

func TestOverallProgressMonotonic(t *testing.T) {
	// Segments deliberately report regressing values; the emitted
	// overall percentage must still never decrease.
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		onProgress(80)
		onProgress(30)
		onProgress(60)
		return synth.Result{}, nil
	}

	var mu sync.Mutex
	var overall []float64
	s := New(3, 0, newLogger())
	_, err := s.Run(context.Background(), makeSegments(6), generate, func(snap progress.Snapshot) {
		mu.Lock()
		overall = append(overall, snap.Overall)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overall) == 0 {
		t.Fatal("expected progress snapshots")
	}
	for i := 1; i < len(overall); i++ {
		if overall[i] < overall[i-1] {
			t.Fatalf("overall progress regressed at %d: %v -> %v", i, overall[i-1], overall[i])
		}
	}
	if last := overall[len(overall)-1]; last != 100 {
		t.Fatalf("expected final overall 100, got %v", last)
	}
}

func TestCancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started int64
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		if atomic.AddInt64(&started, 1) == 2 {
			cancel()
		}
		select {
		case <-ctx.Done():
			return synth.Result{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return synth.Result{}, nil
	}

	s := New(1, 0, newLogger())
	results, err := s.Run(ctx, makeSegments(10), generate, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(results) >= 10 {
		t.Fatalf("expected dispatch to stop early, got %d results", len(results))
	}
}

func TestCallTimeoutMarksSegmentFailed(t *testing.T) {
	generate := func(ctx context.Context, seg Segment, onProgress func(float64)) (synth.Result, error) {
		if seg.Index == 0 {
			<-ctx.Done()
			return synth.Result{}, ctx.Err()
		}
		return synth.Result{Audio: []byte{1}}, nil
	}

	s := New(2, 20*time.Millisecond, newLogger())
	results, err := s.Run(context.Background(), makeSegments(3), generate, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected timeout recorded for segment 0")
	}
	if results[1].Err != nil || results[2].Err != nil {
		t.Fatal("timeout must not abort sibling segments")
	}
}

func TestEmptySegmentList(t *testing.T) {
	s := New(3, 0, newLogger())
	results, err := s.Run(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result map, got %d entries", len(results))
	}
}
