// Package assembler merges completed segment audio into one artifact.
//
// Concatenation is byte-level: it is only valid because every segment
// of a job is produced with one provider configuration and therefore
// one encoding. Assemble enforces that invariant by rejecting mixed
// media types instead of assuming the container tolerates them.
package assembler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/arcanadraconi/audiomax/internal/synth"
)

// Item pairs a segment index with its synthesis result. Items may
// arrive in any order; output byte order always follows index order.
type Item struct {
	Index int
	Audio synth.Result
}

// Artifact is the combined narration audio.
type Artifact struct {
	Data      []byte
	MediaType string
}

// FetchError reports a segment whose audio reference could not be
// resolved. Assembly never skips a missing segment.
type FetchError struct {
	Index int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch audio for segment %d: %v", e.Index, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

const (
	fetchAttempts   = 3
	fetchRetryDelay = 200 * time.Millisecond

	// Progress weights across the three phases.
	fetchPhaseEnd   = 70.0
	combinePhaseEnd = 95.0
)

// Assembler resolves segment audio references and concatenates the
// payloads in index order.
type Assembler struct {
	client *http.Client
	logger *slog.Logger
}

func New(client *http.Client, logger *slog.Logger) *Assembler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Assembler{
		client: client,
		logger: logger.With(slog.String("component", "assembler")),
	}
}

// Assemble fetches every item's audio, concatenates the payloads in
// ascending index order and returns one artifact. Any fetch failure
// aborts the whole assembly with a FetchError naming the index.
// onProgress receives percentages in [0,100] spanning the fetch,
// combine and encode phases; it may be nil.
func (a *Assembler) Assemble(ctx context.Context, items []Item, onProgress func(pct float64)) (Artifact, error) {
	if len(items) == 0 {
		return Artifact{}, fmt.Errorf("no segments to assemble")
	}

	report := func(pct float64) {
		if onProgress != nil {
			onProgress(pct)
		}
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	// Fetch phase: resolve every reference to raw bytes.
	payloads := make([][]byte, len(ordered))
	mediaType := ""
	for i, item := range ordered {
		data, err := a.resolve(ctx, item)
		if err != nil {
			return Artifact{}, &FetchError{Index: item.Index, Err: err}
		}
		if mediaType == "" {
			mediaType = item.Audio.MediaType
		} else if item.Audio.MediaType != "" && item.Audio.MediaType != mediaType {
			return Artifact{}, fmt.Errorf("segment %d media type %q does not match job media type %q",
				item.Index, item.Audio.MediaType, mediaType)
		}
		payloads[i] = data
		report(float64(i+1) / float64(len(ordered)) * fetchPhaseEnd)
	}

	// Combine phase: strict index order, opaque bytes.
	var total int
	for _, p := range payloads {
		total += len(p)
	}
	combined := make([]byte, 0, total)
	for i, p := range payloads {
		combined = append(combined, p...)
		report(fetchPhaseEnd + float64(i+1)/float64(len(payloads))*(combinePhaseEnd-fetchPhaseEnd))
	}

	if mediaType == "" {
		mediaType = "audio/mpeg"
	}
	a.logger.Info("assembly complete",
		slog.Int("segments", len(ordered)),
		slog.Int("bytes", len(combined)),
		slog.String("media_type", mediaType))
	report(100)

	return Artifact{Data: combined, MediaType: mediaType}, nil
}

// resolve returns the raw audio for one item, downloading it when the
// result carries a reference instead of inline bytes.
func (a *Assembler) resolve(ctx context.Context, item Item) ([]byte, error) {
	if len(item.Audio.Audio) > 0 {
		return item.Audio.Audio, nil
	}
	if item.Audio.AudioRef == "" {
		return nil, fmt.Errorf("segment has neither inline audio nor a reference")
	}
	return a.fetch(ctx, item.Audio.AudioRef)
}

// fetch downloads a URL with bounded retry on transport errors and
// retryable status codes.
func (a *Assembler) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	delay := fetchRetryDelay
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if retryableStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("server returned %s", resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", fetchAttempts, lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
