package assembler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/arcanadraconi/audiomax/internal/synth"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func inlineItem(index int, data []byte) Item {
	return Item{Index: index, Audio: synth.Result{Audio: data, MediaType: "audio/mpeg"}}
}

func TestOrderIndependence(t *testing.T) {
	// Items arrive in completion order [2,0,1]; output must follow
	// index order.
	items := []Item{
		inlineItem(2, []byte("CC")),
		inlineItem(0, []byte("AA")),
		inlineItem(1, []byte("BB")),
	}

	a := New(nil, newLogger())
	artifact, err := a.Assemble(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(artifact.Data, []byte("AABBCC")) {
		t.Fatalf("wrong byte order: %q", artifact.Data)
	}
	if artifact.MediaType != "audio/mpeg" {
		t.Fatalf("wrong media type: %q", artifact.MediaType)
	}
}

func TestFetchRemoteReferences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "payload-%s", r.URL.Path[1:])
	}))
	t.Cleanup(srv.Close)

	items := []Item{
		{Index: 0, Audio: synth.Result{AudioRef: srv.URL + "/0", MediaType: "audio/mpeg"}},
		{Index: 1, Audio: synth.Result{AudioRef: srv.URL + "/1", MediaType: "audio/mpeg"}},
	}

	var last float64
	a := New(srv.Client(), newLogger())
	artifact, err := a.Assemble(context.Background(), items, func(pct float64) {
		if pct < last {
			t.Fatalf("assembly progress regressed: %v -> %v", last, pct)
		}
		last = pct
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(artifact.Data) != "payload-0payload-1" {
		t.Fatalf("wrong assembled data: %q", artifact.Data)
	}
	if last != 100 {
		t.Fatalf("expected final progress 100, got %v", last)
	}
}

func TestFetchFailureAbortsWithIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	t.Cleanup(srv.Close)

	items := []Item{
		{Index: 0, Audio: synth.Result{AudioRef: srv.URL + "/0"}},
		{Index: 1, Audio: synth.Result{AudioRef: srv.URL + "/1"}},
		{Index: 2, Audio: synth.Result{AudioRef: srv.URL + "/2"}},
	}

	a := New(srv.Client(), newLogger())
	_, err := a.Assemble(context.Background(), items, nil)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fetchErr.Index != 1 {
		t.Fatalf("expected failing index 1, got %d", fetchErr.Index)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "recovered")
	}))
	t.Cleanup(srv.Close)

	items := []Item{{Index: 0, Audio: synth.Result{AudioRef: srv.URL + "/0"}}}
	a := New(srv.Client(), newLogger())
	artifact, err := a.Assemble(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(artifact.Data) != "recovered" {
		t.Fatalf("wrong data after retry: %q", artifact.Data)
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestMixedMediaTypesRejected(t *testing.T) {
	items := []Item{
		{Index: 0, Audio: synth.Result{Audio: []byte("a"), MediaType: "audio/mpeg"}},
		{Index: 1, Audio: synth.Result{Audio: []byte("b"), MediaType: "audio/wav"}},
	}
	a := New(nil, newLogger())
	if _, err := a.Assemble(context.Background(), items, nil); err == nil {
		t.Fatal("expected mixed media type error")
	}
}

func TestNoSegments(t *testing.T) {
	a := New(nil, newLogger())
	if _, err := a.Assemble(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
