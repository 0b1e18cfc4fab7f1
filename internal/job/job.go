package job

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a report job
type Status string

// Possible job status values
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Kind identifies the type of report a job produces
type Kind string

// Supported report kinds
const (
	KindURAR           Kind = "urar"
	KindMarketAnalysis Kind = "market_analysis"
	KindPropertyCard   Kind = "property_card"
	KindCompsGrid      Kind = "comps_grid"
	KindCustom         Kind = "custom"
)

// Format identifies the output format of a generated report
type Format string

// Supported output formats
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ValidKind reports whether k is a recognized report kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindURAR, KindMarketAnalysis, KindPropertyCard, KindCompsGrid, KindCustom:
		return true
	}
	return false
}

// ValidFormat reports whether f is a recognized output format.
func ValidFormat(f Format) bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatHTML, FormatJSON, FormatXML:
		return true
	}
	return false
}

// Job represents a single request to produce one report output.
//
// The payload is opaque to the job system: it is handed to the render
// collaborator untouched and is persisted under its own key because it
// may be large. Priority is mutated only by the retry path, never by the
// submitter after creation.
type Job struct {
	ID             uuid.UUID  `json:"id"`
	Kind           Kind       `json:"kind"`
	Format         Format     `json:"format"`
	Payload        []byte     `json:"-"`
	SubmitterID    string     `json:"submitter_id"`
	Priority       int        `json:"priority"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	RetryCount     int        `json:"retry_count"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	OutputLocation string     `json:"output_location,omitempty"`
}

// New creates a queued job with a fresh id and creation timestamp.
// A non-positive priority falls back to the default of 1.
func New(kind Kind, format Format, payload []byte, submitterID string, priority int) *Job {
	if priority <= 0 {
		priority = 1
	}
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Format:      format,
		Payload:     payload,
		SubmitterID: submitterID,
		Priority:    priority,
		Status:      StatusQueued,
		CreatedAt:   time.Now().UTC(),
	}
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Summary is the lightweight projection of a job persisted in the queue
// log. It carries just enough to reconstruct dequeue order on restart.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	Format     Format    `json:"format"`
	Priority   int       `json:"priority"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	RetryCount int       `json:"retry_count"`
}

// Summary returns the queue-log projection of the job.
func (j *Job) Summary() Summary {
	return Summary{
		ID:         j.ID,
		Kind:       j.Kind,
		Format:     j.Format,
		Priority:   j.Priority,
		Status:     j.Status,
		CreatedAt:  j.CreatedAt,
		RetryCount: j.RetryCount,
	}
}
