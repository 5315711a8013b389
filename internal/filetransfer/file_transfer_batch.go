package filetransfer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wandb/multiupload/internal/observability"
)

// errNoOutcome is the abort reason of a task that exited without
// returning, e.g. through runtime.Goexit.
var errNoOutcome = errors.New("task exited without producing an outcome")

// Uploader uploads the file of a single task.
type Uploader interface {
	Upload(ctx context.Context, task *UploadTask) (int64, error)
}

// Dispatcher uploads a batch of files concurrently, one task per file.
type Dispatcher struct {
	// uploader performs each upload
	uploader Uploader

	// concurrency is the maximum number of uploads in flight; 0 is unlimited
	concurrency int

	// fileTransferStats keeps track of outcome counts
	fileTransferStats FileTransferStats

	// logger is the logger for the dispatcher
	logger *observability.CoreLogger

	// onComplete is called once per finished task
	onComplete func(Outcome)
}

type DispatcherOption func(d *Dispatcher)

func WithLogger(logger *observability.CoreLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithConcurrency caps the number of uploads in flight.
//
// Zero or a negative value launches every task at once.
func WithConcurrency(concurrency int) DispatcherOption {
	return func(d *Dispatcher) {
		d.concurrency = concurrency
	}
}

func WithFileTransferStats(fileTransferStats FileTransferStats) DispatcherOption {
	return func(d *Dispatcher) {
		d.fileTransferStats = fileTransferStats
	}
}

// WithCompletionCallback registers fn to be called with each outcome as
// soon as its task finishes. Calls may happen concurrently.
func WithCompletionCallback(fn func(Outcome)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onComplete = fn
	}
}

func NewDispatcher(uploader Uploader, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		uploader: uploader,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = observability.NewNoOpLogger()
	}
	if d.fileTransferStats == nil {
		d.fileTransferStats = NewFileTransferStats()
	}

	return d
}

// Dispatch uploads every path to url and blocks until all uploads finish.
//
// The report has one outcome per path, in the order of paths. Upload
// failures and panics are reported as outcomes; an error is returned only
// if the batch could not be started at all. An empty paths list is not an
// error: the report is marked NothingToDo.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	paths []string,
	url string,
) (*Report, error) {
	if d.uploader == nil {
		return nil, errors.New("file transfer: dispatch: no uploader configured")
	}

	if len(paths) == 0 {
		d.logger.Info("file transfer: dispatch: no files provided")
		d.fileTransferStats.SetDone()
		return &Report{Url: url, NothingToDo: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("file transfer: dispatch: %w", err)
	}

	report := &Report{
		BatchID:  uuid.New().String(),
		Url:      url,
		Outcomes: make([]Outcome, len(paths)),
	}
	logger := d.logger.With("batch_id", report.BatchID)
	logger.Debug(
		"file transfer: dispatch: starting batch",
		"files", len(paths),
		"concurrency", d.concurrency,
	)

	group := &errgroup.Group{}
	if d.concurrency > 0 {
		group.SetLimit(d.concurrency)
	}

	for i, path := range paths {
		task := NewUploadTask(i, path, url)

		// Each slot has a single writer: the task with the same index.
		report.Outcomes[i] = abortedOutcome(task, errNoOutcome, nil)

		group.Go(func() error {
			// Deferred so that a task leaving through runtime.Goexit is
			// still counted with its placeholder outcome.
			defer func() { d.complete(logger, report.Outcomes[i]) }()
			report.Outcomes[i] = d.runTask(ctx, logger, task)
			return nil
		})
	}

	_ = group.Wait()
	d.fileTransferStats.SetDone()

	logger.Debug(
		"file transfer: dispatch: batch finished",
		"succeeded", report.Count(StatusSuccess),
		"failed", report.Count(StatusFailure),
		"aborted", report.Count(StatusAborted),
	)
	return report, nil
}

// runTask uploads one file, turning a panic into an aborted outcome.
func (d *Dispatcher) runTask(
	ctx context.Context,
	logger *observability.CoreLogger,
	task *UploadTask,
) (outcome Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = abortedOutcome(task, r, debug.Stack())
			outcome.Duration = time.Since(start)
			logger.CaptureError(outcome.Err, "path", task.Path, "url", task.Url)
		}
	}()

	logger.Debug("file transfer: dispatch: got task", "task", task)
	n, err := d.uploader.Upload(ctx, task)
	outcome = newOutcome(task, n, err, time.Since(start))

	switch kind := Classify(err); {
	case err == nil:
	case kind == KindTransport:
		// Reported to Sentry; identical messages from the other files of
		// an unreachable endpoint are de-duplicated there.
		logger.CaptureWarn(
			"file transfer: dispatch: endpoint unreachable",
			"url", task.Url,
			"path", task.Path,
			"error", err,
		)
	default:
		logger.Warn(
			"file transfer: dispatch: upload failed",
			"path", task.Path,
			"kind", kind,
			"error", err,
		)
	}
	return outcome
}

// complete records stats and runs the completion callback.
//
// A panicking callback is logged and otherwise ignored; the outcome is
// already stored.
func (d *Dispatcher) complete(logger *observability.CoreLogger, outcome Outcome) {
	d.fileTransferStats.RecordOutcome(outcome)

	if d.onComplete == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.CaptureError(
				fmt.Errorf("file transfer: dispatch: completion callback panicked: %v", r),
				"path", outcome.Path,
			)
		}
	}()
	d.onComplete(outcome)
}
