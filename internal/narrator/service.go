package narrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/arcanadraconi/audiomax/internal/bus"
	"github.com/arcanadraconi/audiomax/internal/config"
	"github.com/arcanadraconi/audiomax/internal/jobstore"
	"github.com/arcanadraconi/audiomax/internal/protocol"
)

// Service runs narration jobs submitted on the bus. Progress and
// completion are published on per-job subjects; the lifecycle is
// recorded in the job store.
type Service struct {
	cfg      config.NarratorConfig
	bus      *bus.Client
	pipeline *Pipeline
	store    *jobstore.Store
	sub      *nats.Subscription
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *slog.Logger

	jobsCompleted  metric.Int64Counter
	jobsFailed     metric.Int64Counter
	segmentsFailed metric.Int64Counter
}

func NewService(parent context.Context, cfg config.NarratorConfig, busClient *bus.Client, pipeline *Pipeline, store *jobstore.Store, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)

	meter := otel.Meter("github.com/arcanadraconi/audiomax/internal/narrator")
	jobsCompleted, _ := meter.Int64Counter("narrate.jobs.completed")
	jobsFailed, _ := meter.Int64Counter("narrate.jobs.failed")
	segmentsFailed, _ := meter.Int64Counter("narrate.segments.failed")

	return &Service{
		cfg:            cfg,
		bus:            busClient,
		pipeline:       pipeline,
		store:          store,
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger.With(slog.String("component", "narrator-service")),
		jobsCompleted:  jobsCompleted,
		jobsFailed:     jobsFailed,
		segmentsFailed: segmentsFailed,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectJobRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.JobRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode job request", slogError(err))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(req)
	}()
}

func (s *Service) runJob(req protocol.JobRequest) {
	jobReq := JobRequest{
		JobID:    req.JobID,
		Text:     req.Text,
		Audience: req.Audience,
		Style:    req.Style,
		Voice: VoiceParams{
			Voice:   req.Voice,
			Quality: req.Quality,
			Speed:   req.Speed,
		},
		AllowPartial: req.AllowPartial,
	}
	if jobReq.JobID == "" {
		jobReq.JobID = uuid.NewString()
	}

	// The job row must exist before phase events reference it.
	if err := s.store.CreateJob(s.ctx, jobReq.JobID, 0); err != nil {
		s.logger.Warn("failed to persist job", slogError(err))
	}

	var lastPhase Phase
	onProgress := func(evt ProgressEvent) {
		s.publishProgress(evt)
		// One history row per phase transition is enough; percentage
		// streams stay on the bus.
		if evt.Phase != lastPhase {
			lastPhase = evt.Phase
			_ = s.store.AppendEvent(s.ctx, jobstore.Event{
				JobID:      evt.JobID,
				Type:       "phase",
				Phase:      string(evt.Phase),
				Percentage: evt.Percentage,
			})
		}
	}

	out, err := s.pipeline.Run(s.ctx, jobReq, onProgress)

	if segErr := s.store.SetSegments(s.ctx, out.JobID, len(out.Segments)); segErr != nil {
		s.logger.Warn("failed to record segment count", slogError(segErr))
	}

	result := protocol.JobResult{
		JobID:          out.JobID,
		FailedSegments: out.FailedIndices,
		TotalSegments:  len(out.Segments),
		Timestamp:      time.Now().UTC(),
	}
	switch {
	case err == nil && !out.PartiallyFailed:
		result.Status = "completed"
		s.jobsCompleted.Add(s.ctx, 1)
	case out.Artifact != nil:
		result.Status = "partial"
		s.jobsCompleted.Add(s.ctx, 1)
	default:
		result.Status = "failed"
		s.jobsFailed.Add(s.ctx, 1)
		if err != nil {
			result.Error = err.Error()
		}
	}
	s.segmentsFailed.Add(s.ctx, int64(len(out.FailedIndices)))
	if out.Artifact != nil {
		result.MediaType = out.Artifact.MediaType
		result.Audio = out.Artifact.Data
	}

	if err := s.store.SetStatus(s.ctx, out.JobID, result.Status); err != nil {
		s.logger.Warn("failed to update job status", slogError(err))
	}
	s.publishResult(result)
}

func (s *Service) publishProgress(evt ProgressEvent) {
	data, err := json.Marshal(protocol.JobProgress{
		JobID:      evt.JobID,
		Phase:      string(evt.Phase),
		Percentage: evt.Percentage,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to marshal progress event", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.ProgressSubject(evt.JobID), data); err != nil {
		s.logger.Warn("failed to publish progress event", slogError(err))
	}
}

func (s *Service) publishResult(result protocol.JobResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to marshal job result", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.DoneSubject(result.JobID), data); err != nil {
		s.logger.Warn("failed to publish job result", slogError(err))
	}
	s.logger.Info("job result published",
		slog.String("job_id", result.JobID),
		slog.String("status", result.Status),
		slog.Int("failed_segments", len(result.FailedSegments)))
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
