// Package narrator owns the end-to-end text-to-audio job: transcript,
// chunking, scheduled synthesis and assembly, with phase progress
// reported through an explicit observer callback.
package narrator

import (
	"github.com/arcanadraconi/audiomax/internal/assembler"
)

// SegmentStatus tracks one segment through the generation state
// machine: pending -> generating -> complete | failed.
type SegmentStatus string

const (
	SegmentPending    SegmentStatus = "pending"
	SegmentGenerating SegmentStatus = "generating"
	SegmentComplete   SegmentStatus = "complete"
	SegmentFailed     SegmentStatus = "failed"
)

// Segment is a bounded slice of the transcript. Index defines final
// playback order; Text never changes after chunking.
type Segment struct {
	Index  int
	Text   string
	Status SegmentStatus
}

// VoiceParams is the opaque voice configuration forwarded to the
// synthesis provider.
type VoiceParams struct {
	Voice   string
	Quality string
	Speed   float64
}

// Job is one end-to-end conversion request. It owns its segments
// exclusively from submission to completion.
type Job struct {
	ID             string
	Segments       []Segment
	MaxConcurrency int
	Voice          VoiceParams
	AllowPartial   bool
}

// Phase names the stage a progress event belongs to.
type Phase string

const (
	PhaseProcessing Phase = "processing"
	PhaseGenerating Phase = "generating"
	PhaseAssembling Phase = "assembling"
)

// ProgressEvent is delivered to the pipeline's observer on every
// progress update.
type ProgressEvent struct {
	JobID      string
	Phase      Phase
	Percentage float64
}

// Outcome is the structured result of a job run. Exactly one of three
// shapes reaches the caller: fully succeeded (Artifact set, no failed
// indices), partially failed (FailedIndices set; Artifact only when
// the job opted into partial output), or failed before any generation
// (error only).
type Outcome struct {
	JobID           string
	Segments        []Segment
	Artifact        *assembler.Artifact
	FailedIndices   []int
	PartiallyFailed bool
}

// JobRequest is the caller-facing submission.
type JobRequest struct {
	JobID        string
	Text         string
	Audience     string
	Style        string
	Voice        VoiceParams
	AllowPartial bool
}
