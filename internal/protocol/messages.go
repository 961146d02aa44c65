// Package protocol defines the typed bus messages and subjects for
// narration jobs.
package protocol

import "time"

// JobRequest submits text for narration.
type JobRequest struct {
	JobID        string  `json:"job_id,omitempty"`
	Text         string  `json:"text"`
	Audience     string  `json:"audience,omitempty"`
	Style        string  `json:"style,omitempty"`
	Voice        string  `json:"voice,omitempty"`
	Quality      string  `json:"quality,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
	AllowPartial bool    `json:"allow_partial,omitempty"`
}

// JobProgress reports one phase percentage update.
type JobProgress struct {
	JobID      string    `json:"job_id"`
	Phase      string    `json:"phase"` // processing, generating, assembling
	Percentage float64   `json:"percentage"`
	Timestamp  time.Time `json:"timestamp"`
}

// JobResult is published once per job on its done subject.
type JobResult struct {
	JobID          string    `json:"job_id"`
	Status         string    `json:"status"` // completed, partial, failed
	FailedSegments []int     `json:"failed_segments,omitempty"`
	TotalSegments  int       `json:"total_segments"`
	MediaType      string    `json:"media_type,omitempty"`
	Audio          []byte    `json:"audio,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

const (
	SubjectJobRequest        = "narrate.job.request"
	SubjectJobProgressPrefix = "narrate.job.progress"
	SubjectJobDonePrefix     = "narrate.job.done"
)

// ProgressSubject returns the per-job progress subject.
func ProgressSubject(jobID string) string {
	return SubjectJobProgressPrefix + "." + jobID
}

// DoneSubject returns the per-job completion subject.
func DoneSubject(jobID string) string {
	return SubjectJobDonePrefix + "." + jobID
}
