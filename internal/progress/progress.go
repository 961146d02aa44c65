// Package progress computes job-level progress from per-segment values.
package progress

// Snapshot is a point-in-time view of a job's progress. It is derived
// entirely from segment state and is never persisted.
type Snapshot struct {
	PerSegment map[int]float64
	Overall    float64
}

// Overall returns the unweighted mean of per-segment percentages over
// total segments. Segments with no reported value count as zero, so a
// job that has not started reports 0 and a fully complete job reports
// 100. Values are clamped to [0, 100].
func Overall(perSegment map[int]float64, total int) float64 {
	if total <= 0 {
		return 0
	}
	var sum float64
	for _, pct := range perSegment {
		sum += clamp(pct)
	}
	overall := sum / float64(total)
	return clamp(overall)
}

func clamp(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
