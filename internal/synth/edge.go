package synth

import (
	"bytes"
	"context"

	"github.com/hajimehoshi/go-mp3"
	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
)

// edgeBytesPerChar is a rough estimate of MP3 output per input
// character, used only to map streamed byte counts onto a progress
// percentage. The estimate is capped below 100 so completion is
// reported exactly once, when the stream ends.
const edgeBytesPerChar = 180

type edgeSynth struct {
	voice string
}

// NewEdgeSynth synthesizes through the Microsoft Edge TTS endpoint.
// The service streams MP3 frames, which concatenate cleanly, so the
// payload is returned inline as one audio/mpeg buffer.
func NewEdgeSynth(voice string) Synthesizer {
	return &edgeSynth{voice: voice}
}

func (e *edgeSynth) Synthesize(ctx context.Context, req Request, onProgress func(pct float64)) (Result, error) {
	voice := req.Voice
	if voice == "" {
		voice = e.voice
	}

	comm, err := edge.NewCommunicate(req.Text, edge.WithVoice(voice))
	if err != nil {
		return Result{}, &Error{Provider: "edge", Reason: "create session", Err: err}
	}

	ch, err := comm.Stream()
	if err != nil {
		return Result{}, &Error{Provider: "edge", Reason: "open stream", Err: err}
	}

	expected := len(req.Text) * edgeBytesPerChar
	var buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return Result{}, &Error{Provider: "edge", Reason: "cancelled", Err: ctx.Err()}
		default:
		}
		if msgType, ok := msg["type"].(string); !ok || msgType != "audio" {
			continue
		}
		data, ok := msg["data"].([]byte)
		if !ok {
			continue
		}
		buf.Write(data)
		if onProgress != nil && expected > 0 {
			pct := float64(buf.Len()) / float64(expected) * 100
			if pct > 95 {
				pct = 95
			}
			onProgress(pct)
		}
	}

	audio := buf.Bytes()
	if len(audio) == 0 {
		return Result{}, &Error{Provider: "edge", Reason: "no audio received"}
	}

	// Reject payloads go-mp3 cannot parse before they reach assembly.
	if _, err := mp3.NewDecoder(bytes.NewReader(audio)); err != nil {
		return Result{}, &Error{Provider: "edge", Reason: "invalid mp3 payload", Err: err}
	}

	return Result{Audio: audio, MediaType: "audio/mpeg"}, nil
}
