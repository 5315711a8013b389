package filetransfer

import (
	"time"
)

// Status is the terminal state of one upload task.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of one UploadTask.
type Outcome struct {
	Index  int
	Path   string
	Name   string
	Url    string
	Status Status

	// Err is nil on success, an upload error on failure, and a
	// *TaskAbortedError when the task panicked.
	Err error

	// Bytes is the number of file bytes sent on success.
	Bytes int64

	Duration time.Duration
}

func newOutcome(task *UploadTask, bytes int64, err error, duration time.Duration) Outcome {
	outcome := Outcome{
		Index:    task.Index,
		Path:     task.Path,
		Name:     task.Name,
		Url:      task.Url,
		Status:   StatusSuccess,
		Bytes:    bytes,
		Duration: duration,
	}
	if err != nil {
		outcome.Status = StatusFailure
		outcome.Err = err
		outcome.Bytes = 0
	}
	return outcome
}

// abortedOutcome is the placeholder outcome for a task that has not
// reported back; it is overwritten when the task returns.
func abortedOutcome(task *UploadTask, value any, stack []byte) Outcome {
	return Outcome{
		Index:  task.Index,
		Path:   task.Path,
		Name:   task.Name,
		Url:    task.Url,
		Status: StatusAborted,
		Err:    &TaskAbortedError{Value: value, Stack: stack},
	}
}

// OutcomeSummary is the serializable form of an Outcome.
type OutcomeSummary struct {
	Path       string `json:"path" yaml:"path"`
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Bytes      int64  `json:"bytes" yaml:"bytes"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

func (o Outcome) Summary() OutcomeSummary {
	summary := OutcomeSummary{
		Path:       o.Path,
		Name:       o.Name,
		Status:     o.Status.String(),
		Kind:       Classify(o.Err),
		Bytes:      o.Bytes,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		summary.Error = o.Err.Error()
	}
	if statusErr, ok := o.Err.(*HTTPStatusError); ok {
		summary.StatusCode = statusErr.StatusCode
	}
	return summary
}

// Report is the result of a batch: exactly one Outcome per input path,
// in input order.
type Report struct {
	BatchID string
	Url     string

	// NothingToDo is set when the batch had no input paths.
	NothingToDo bool

	Outcomes []Outcome
}

// Count returns the number of outcomes with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// ReportSummary is the serializable form of a Report.
type ReportSummary struct {
	BatchID   string           `json:"batchId,omitempty" yaml:"batchId,omitempty"`
	Url       string           `json:"url" yaml:"url"`
	Succeeded int              `json:"succeeded" yaml:"succeeded"`
	Failed    int              `json:"failed" yaml:"failed"`
	Aborted   int              `json:"aborted" yaml:"aborted"`
	Files     []OutcomeSummary `json:"files" yaml:"files"`
}

func (r *Report) Summary() ReportSummary {
	files := make([]OutcomeSummary, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		files = append(files, o.Summary())
	}
	return ReportSummary{
		BatchID:   r.BatchID,
		Url:       r.Url,
		Succeeded: r.Count(StatusSuccess),
		Failed:    r.Count(StatusFailure),
		Aborted:   r.Count(StatusAborted),
		Files:     files,
	}
}
