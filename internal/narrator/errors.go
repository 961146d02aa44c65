package narrator

import (
	"fmt"
)

// ChunkingError means the input text could not be segmented; the job
// never starts generating.
type ChunkingError struct {
	Reason string
}

func (e *ChunkingError) Error() string {
	return "chunking failed: " + e.Reason
}

// GenerationError records a single segment's provider failure. It is
// recovered locally; sibling segments keep running.
type GenerationError struct {
	Index int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate segment %d: %v", e.Index, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// JobError aggregates a job's failed segments. It is returned when at
// least one segment failed and the job did not opt into partial output.
type JobError struct {
	JobID         string
	FailedIndices []int
	Total         int
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %d of %d segments failed", e.JobID, len(e.FailedIndices), e.Total)
}
