package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcanadraconi/audiomax/internal/assembler"
	"github.com/arcanadraconi/audiomax/internal/bus"
	"github.com/arcanadraconi/audiomax/internal/config"
	"github.com/arcanadraconi/audiomax/internal/jobstore"
	"github.com/arcanadraconi/audiomax/internal/narrator"
	"github.com/arcanadraconi/audiomax/internal/natsserver"
	"github.com/arcanadraconi/audiomax/internal/synth"
	"github.com/arcanadraconi/audiomax/internal/transcript"
)

// Runtime wires the narration service together: telemetry, bus, job
// store, synthesis pipeline and the HTTP health surface.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := jobstore.Open(ctx, r.cfg.JobStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer store.Close()

	transcripts, err := transcript.New(r.cfg.Transcript)
	if err != nil {
		return fmt.Errorf("failed to build transcript generator: %w", err)
	}
	synthesizer, err := synth.New(r.cfg.Synthesis)
	if err != nil {
		return fmt.Errorf("failed to build synthesizer: %w", err)
	}

	asm := assembler.New(nil, r.logger)
	callTimeout := time.Duration(r.cfg.Synthesis.TimeoutMS) * time.Millisecond
	pipeline := narrator.NewPipeline(r.cfg.Narrator, callTimeout, transcripts, synthesizer, asm, r.logger)

	service := narrator.NewService(ctx, r.cfg.Narrator, busClient, pipeline, store, r.logger)
	if err := service.Start(); err != nil {
		return fmt.Errorf("failed to start narrator service: %w", err)
	}
	defer service.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if r.ready.Load() && busClient.Healthy() && service.Healthy() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
