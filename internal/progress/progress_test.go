package progress

import "testing"

func TestOverallMean(t *testing.T) {
	per := map[int]float64{0: 100, 1: 50, 2: 0}
	if got := Overall(per, 4); got != 37.5 {
		t.Fatalf("expected 37.5, got %v", got)
	}
}

func TestAbsentEntriesCountZero(t *testing.T) {
	per := map[int]float64{0: 100}
	if got := Overall(per, 10); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestEmptyJob(t *testing.T) {
	if got := Overall(nil, 0); got != 0 {
		t.Fatalf("expected 0 for empty job, got %v", got)
	}
}

func TestClamping(t *testing.T) {
	per := map[int]float64{0: 150, 1: -20}
	if got := Overall(per, 2); got != 50 {
		t.Fatalf("expected out-of-range values clamped, got %v", got)
	}
}

func TestComplete(t *testing.T) {
	per := map[int]float64{0: 100, 1: 100, 2: 100}
	if got := Overall(per, 3); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}
