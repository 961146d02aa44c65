package narrator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arcanadraconi/audiomax/internal/assembler"
	"github.com/arcanadraconi/audiomax/internal/chunker"
	"github.com/arcanadraconi/audiomax/internal/config"
	"github.com/arcanadraconi/audiomax/internal/progress"
	"github.com/arcanadraconi/audiomax/internal/scheduler"
	"github.com/arcanadraconi/audiomax/internal/synth"
	"github.com/arcanadraconi/audiomax/internal/transcript"
)

// Pipeline runs jobs end to end: transcript -> chunker -> scheduler ->
// assembler. Each job constructs its own scheduler; the pipeline holds
// no cross-job mutable state.
type Pipeline struct {
	cfg         config.NarratorConfig
	callTimeout time.Duration
	transcripts transcript.Generator
	synth       synth.Synthesizer
	asm         *assembler.Assembler
	logger      *slog.Logger
}

func NewPipeline(cfg config.NarratorConfig, callTimeout time.Duration, gen transcript.Generator, syn synth.Synthesizer, asm *assembler.Assembler, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		callTimeout: callTimeout,
		transcripts: gen,
		synth:       syn,
		asm:         asm,
		logger:      logger.With(slog.String("component", "pipeline")),
	}
}

// Run executes one job. onProgress receives phase-tagged percentages
// for the processing, generating and assembling stages; it may be nil.
//
// Error shape: a *ChunkingError (or transcript failure) means nothing
// was generated; a *JobError means some segments failed and the job
// did not accept partial output; an *assembler.FetchError means
// generation succeeded but assembly could not retrieve a payload.
func (p *Pipeline) Run(ctx context.Context, req JobRequest, onProgress func(ProgressEvent)) (Outcome, error) {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	out := Outcome{JobID: jobID}

	report := func(phase Phase, pct float64) {
		if onProgress != nil {
			onProgress(ProgressEvent{JobID: jobID, Phase: phase, Percentage: pct})
		}
	}

	// Processing phase: obtain the narrative text and chunk it.
	report(PhaseProcessing, 0)
	text, err := p.transcripts.Generate(ctx, transcript.Request{
		SourceText: req.Text,
		Audience:   req.Audience,
		Style:      req.Style,
	})
	if err != nil {
		return out, &ChunkingError{Reason: "transcript generation failed: " + err.Error()}
	}

	chunks := chunker.Chunk(text, p.cfg.MaxChunkLen)
	if len(chunks) == 0 {
		return out, &ChunkingError{Reason: "no narratable text"}
	}
	report(PhaseProcessing, 100)

	job := Job{
		ID:             jobID,
		MaxConcurrency: p.cfg.MaxConcurrency,
		Voice:          req.Voice,
		AllowPartial:   req.AllowPartial || p.cfg.AllowPartial,
	}
	job.Segments = make([]Segment, len(chunks))
	segs := make([]scheduler.Segment, len(chunks))
	for i, c := range chunks {
		job.Segments[i] = Segment{Index: i, Text: c, Status: SegmentPending}
		segs[i] = scheduler.Segment{Index: i, Text: c}
	}

	p.logger.Info("job started",
		slog.String("job_id", jobID),
		slog.Int("segments", len(segs)),
		slog.Int("max_concurrency", job.MaxConcurrency))

	// Generating phase: bounded fan-out, results keyed by index.
	for i := range job.Segments {
		job.Segments[i].Status = SegmentGenerating
	}
	sched := scheduler.New(job.MaxConcurrency, p.callTimeout, p.logger)
	generate := func(ctx context.Context, seg scheduler.Segment, onPct func(float64)) (synth.Result, error) {
		return p.synth.Synthesize(ctx, synth.Request{
			Text:    seg.Text,
			Voice:   job.Voice.Voice,
			Quality: job.Voice.Quality,
			Speed:   job.Voice.Speed,
		}, onPct)
	}
	results, err := sched.Run(ctx, segs, generate, func(snap progress.Snapshot) {
		report(PhaseGenerating, snap.Overall)
	})
	if err != nil {
		out.Segments = job.Segments
		return out, err
	}

	var failed []int
	items := make([]assembler.Item, 0, len(results))
	for i := range job.Segments {
		res, ok := results[i]
		if !ok {
			continue
		}
		if res.Err != nil {
			job.Segments[i].Status = SegmentFailed
			failed = append(failed, i)
			continue
		}
		job.Segments[i].Status = SegmentComplete
		items = append(items, assembler.Item{Index: i, Audio: res.Audio})
	}
	sort.Ints(failed)
	out.Segments = job.Segments
	out.FailedIndices = failed
	out.PartiallyFailed = len(failed) > 0

	// Assembly requires every segment complete unless the caller
	// explicitly accepts partial output.
	if len(failed) > 0 && !job.AllowPartial {
		return out, &JobError{JobID: jobID, FailedIndices: failed, Total: len(job.Segments)}
	}
	if len(items) == 0 {
		return out, &JobError{JobID: jobID, FailedIndices: failed, Total: len(job.Segments)}
	}

	artifact, err := p.asm.Assemble(ctx, items, func(pct float64) {
		report(PhaseAssembling, pct)
	})
	if err != nil {
		return out, err
	}
	out.Artifact = &artifact

	p.logger.Info("job finished",
		slog.String("job_id", jobID),
		slog.Int("failed_segments", len(failed)),
		slog.Int("artifact_bytes", len(artifact.Data)))
	return out, nil
}
