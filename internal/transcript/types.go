// Package transcript adapts the external transcript source: the
// text-generation collaborator that turns raw input into narrative
// text. Its output is untyped input to the chunker; no generation
// logic lives here.
package transcript

import (
	"context"
	"fmt"

	"github.com/arcanadraconi/audiomax/internal/config"
)

// Request describes the text to narrate and how to address the listener.
type Request struct {
	SourceText string
	Audience   string
	Style      string
}

// Generator defines a pluggable transcript backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds a Generator from config.
func New(cfg config.TranscriptConfig) (Generator, error) {
	switch cfg.Mode {
	case "passthrough":
		return NewPassthrough(), nil
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown transcript mode %q", cfg.Mode)
	}
}
