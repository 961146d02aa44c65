// Package synth adapts external speech-synthesis providers behind one
// typed contract. Provider response variance is normalized into Result
// at this boundary and never propagates inward.
package synth

import (
	"context"
	"fmt"

	"github.com/arcanadraconi/audiomax/internal/config"
)

// Request carries the text and voice parameters for one segment.
type Request struct {
	Text    string
	Voice   string
	Quality string
	Speed   float64
}

// Result is the normalized provider response: inline audio bytes, or a
// reference the assembler resolves later. MediaType names the encoding
// of the payload; every segment of a job must share one encoding.
type Result struct {
	AudioRef  string
	Audio     []byte
	MediaType string
}

// Synthesizer produces audio for one segment. Implementations must be
// safe to invoke more than once for the same segment on retry, must
// honor ctx cancellation, and report fractional progress in [0,100]
// through onProgress (which may be nil) before returning.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request, onProgress func(pct float64)) (Result, error)
}

// Error is a typed provider failure.
type Error struct {
	Provider string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s synthesis failed: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s synthesis failed: %s", e.Provider, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Synthesizer from config.
func New(cfg config.SynthesisConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(), nil
	case "edge":
		return NewEdgeSynth(cfg.Voice), nil
	case "exec":
		return NewExecSynth(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown synthesis mode %q", cfg.Mode)
	}
}
