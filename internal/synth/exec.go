package synth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd []string
}

type execRequest struct {
	Text    string  `json:"text"`
	Voice   string  `json:"voice"`
	Quality string  `json:"quality,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
}

// execResponse is one newline-delimited JSON message from the child
// process: progress-only lines carry a percentage, the final line
// carries the audio payload.
type execResponse struct {
	AudioBase64 string  `json:"audio_base64,omitempty"`
	AudioURL    string  `json:"audio_url,omitempty"`
	MediaType   string  `json:"media_type,omitempty"`
	Progress    float64 `json:"progress"`
	Final       bool    `json:"final"`
}

// NewExecSynth runs an external synthesis command per segment. The
// request is written to stdin as JSON; responses stream back on stdout
// one JSON object per line.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, &Error{Provider: "exec", Reason: "parse command", Err: err}
	}
	if len(args) == 0 {
		return nil, &Error{Provider: "exec", Reason: "empty command"}
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request, onProgress func(pct float64)) (Result, error) {
	payload, err := json.Marshal(execRequest{
		Text:    req.Text,
		Voice:   req.Voice,
		Quality: req.Quality,
		Speed:   req.Speed,
	})
	if err != nil {
		return Result{}, &Error{Provider: "exec", Reason: "encode request", Err: err}
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, &Error{Provider: "exec", Reason: "stdout pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return Result{}, &Error{Provider: "exec", Reason: "start command", Err: err}
	}

	var result Result
	var sawFinal bool
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			_ = cmd.Wait()
			return Result{}, &Error{Provider: "exec", Reason: "decode response", Err: err}
		}
		if onProgress != nil && resp.Progress > 0 {
			onProgress(resp.Progress)
		}
		if !resp.Final {
			continue
		}
		sawFinal = true
		result.AudioRef = resp.AudioURL
		result.MediaType = resp.MediaType
		if resp.AudioBase64 != "" {
			audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
			if err != nil {
				_ = cmd.Wait()
				return Result{}, &Error{Provider: "exec", Reason: "decode audio", Err: err}
			}
			result.Audio = audio
		}
	}
	if err := cmd.Wait(); err != nil {
		return Result{}, &Error{Provider: "exec", Reason: "command failed", Err: err}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, &Error{Provider: "exec", Reason: "read output", Err: err}
	}
	if !sawFinal || (len(result.Audio) == 0 && result.AudioRef == "") {
		return Result{}, &Error{Provider: "exec", Reason: "no audio in response"}
	}
	if result.MediaType == "" {
		result.MediaType = "audio/mpeg"
	}
	return result, nil
}
