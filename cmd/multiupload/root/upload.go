package root

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wandb/multiupload/cmd/multiupload/root/version"
	"github.com/wandb/multiupload/internal/cliutil"
	"github.com/wandb/multiupload/internal/filetransfer"
	"github.com/wandb/multiupload/internal/observability"
	"github.com/wandb/multiupload/internal/retryableclient"
	"github.com/wandb/multiupload/internal/sentry_ext"
	"github.com/wandb/multiupload/internal/settings"
	"github.com/wandb/multiupload/internal/uploadmetrics"
)

const sentryFlushTimeout = 2 * time.Second

// runUpload uploads files and prints one line per file, or the whole
// report in the configured format.
//
// Individual upload failures are not errors: the command only fails if
// the batch cannot run or its outputs cannot be written.
func runUpload(cmd *cobra.Command, cfg *settings.Settings, files []string) error {
	out := cmd.OutOrStdout()

	sentryClient := sentry_ext.New(sentry_ext.Params{
		DSN:     cfg.SentryDSN,
		Release: version.Version,
		Commit:  version.GitCommit,
	})
	if sentryClient.Enabled() {
		defer sentryClient.Flush(sentryFlushTimeout)
	}

	logger := observability.NewCoreLogger(
		slog.New(observability.NewConsoleHandler(cmd.ErrOrStderr(), cfg.LogLevel)),
		&observability.CoreLoggerParams{Sentry: sentryClient},
	)

	client := retryableclient.NewRetryClient(
		retryableclient.WithRetryClientLogger(logger),
		retryableclient.WithRetryClientHttpTimeout(cfg.Timeout),
		retryableclient.WithRetryClientUserAgent(version.UserAgent()),
	)

	stats := filetransfer.NewFileTransferStats()
	metrics := uploadmetrics.New()
	fileTransfer := filetransfer.NewDefaultFileTransfer(client, afero.NewOsFs(), logger, stats)

	streamLines := cfg.Format == settings.FormatText && cfg.Template == ""
	var outMu sync.Mutex

	dispatcher := filetransfer.NewDispatcher(
		fileTransfer,
		filetransfer.WithLogger(logger),
		filetransfer.WithConcurrency(cfg.Concurrency),
		filetransfer.WithFileTransferStats(stats),
		filetransfer.WithCompletionCallback(func(outcome filetransfer.Outcome) {
			metrics.Observe(outcome)
			if streamLines {
				outMu.Lock()
				defer outMu.Unlock()
				cliutil.PrintOutcome(out, outcome)
			}
		}),
	)

	report, err := dispatcher.Dispatch(cmd.Context(), files, cfg.URL)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if report.NothingToDo {
		fmt.Fprintln(out, "No files provided.")
		return nil
	}

	if !streamLines {
		format := cfg.Format
		if format == settings.FormatText {
			format = settings.FormatJSON
		}
		if err := cliutil.WriteOutput(out, report.Summary(), format, cfg.Template); err != nil {
			return err
		}
	}

	filesStats := stats.GetFilesStats()
	logger.Info(
		"upload batch finished",
		"batch_id", report.BatchID,
		"succeeded", report.Count(filetransfer.StatusSuccess),
		"failed", report.Count(filetransfer.StatusFailure),
		"aborted", report.Count(filetransfer.StatusAborted),
		"bytes", filesStats.UploadedBytes,
	)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("upload: writing metrics: %w", err)
		}
	}

	return nil
}
