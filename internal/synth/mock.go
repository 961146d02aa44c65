package synth

import (
	"context"
	"time"
)

type mockSynth struct {
	delay time.Duration
}

// NewMockSynth returns a deterministic synthesizer for development and
// tests: the payload is derived from the request text alone.
func NewMockSynth() Synthesizer {
	return &mockSynth{delay: 5 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request, onProgress func(pct float64)) (Result, error) {
	for _, pct := range []float64{25, 50, 75} {
		select {
		case <-ctx.Done():
			return Result{}, &Error{Provider: "mock", Reason: "cancelled", Err: ctx.Err()}
		case <-time.After(m.delay):
		}
		if onProgress != nil {
			onProgress(pct)
		}
	}

	audio := make([]byte, 0, len(req.Text))
	for i := 0; i < len(req.Text); i++ {
		audio = append(audio, req.Text[i]^0x5a)
	}
	return Result{Audio: audio, MediaType: "audio/mpeg"}, nil
}
