package filetransfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/afero"

	"github.com/wandb/multiupload/internal/observability"
)

const (
	// maxErrorBodySize caps how much of a non-2xx response is kept.
	maxErrorBodySize = 1 << 20

	// unreadableBody replaces the body of an error response that could
	// not be read.
	unreadableBody = "<unreadable body>"
)

var errIsDirectory = errors.New("is a directory")

// DefaultFileTransfer uploads files to an HTTP endpoint as
// multipart/form-data, one POST per file.
type DefaultFileTransfer struct {
	// client is the HTTP client shared by all uploads
	client *retryablehttp.Client

	// fs is where files are read from
	fs afero.Fs

	// logger is the logger for the file transfer
	logger *observability.CoreLogger

	// fileTransferStats is used to track upload progress
	fileTransferStats FileTransferStats
}

// NewDefaultFileTransfer creates a new DefaultFileTransfer.
//
// A nil fs reads from the OS filesystem.
func NewDefaultFileTransfer(
	client *retryablehttp.Client,
	fs afero.Fs,
	logger *observability.CoreLogger,
	fileTransferStats FileTransferStats,
) *DefaultFileTransfer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = observability.NewNoOpLogger()
	}
	if fileTransferStats == nil {
		fileTransferStats = NewFileTransferStats()
	}
	return &DefaultFileTransfer{
		client:            client,
		fs:                fs,
		logger:            logger,
		fileTransferStats: fileTransferStats,
	}
}

// UploadFile uploads a single file and classifies the result.
func (ft *DefaultFileTransfer) UploadFile(ctx context.Context, path, url string) Outcome {
	task := NewUploadTask(0, path, url)
	start := time.Now()
	n, err := ft.Upload(ctx, task)
	return newOutcome(task, n, err, time.Since(start))
}

// Upload sends the task's file to its URL and returns the number of file
// bytes sent.
//
// Exactly one request is made. The file is streamed from disk while the
// request is written.
func (ft *DefaultFileTransfer) Upload(ctx context.Context, task *UploadTask) (int64, error) {
	name, err := DisplayName(task.Path)
	if err != nil {
		return 0, err
	}

	ft.logger.Debug("default file transfer: uploading file", "path", task.Path, "url", task.Url)

	file, err := ft.fs.Open(task.Path)
	if err != nil {
		return 0, &FileAccessError{Path: task.Path, Op: "open", Err: err}
	}
	defer func(file afero.File) {
		if err := file.Close(); err != nil {
			ft.logger.CaptureError(
				fmt.Errorf(
					"file transfer: upload: error closing file %s: %v",
					task.Path,
					err,
				))
		}
	}(file)

	stat, err := file.Stat()
	if err != nil {
		return 0, &FileAccessError{Path: task.Path, Op: "stat", Err: err}
	}

	// Don't try to upload directories.
	if stat.IsDir() {
		return 0, &FileAccessError{Path: task.Path, Op: "upload", Err: errIsDirectory}
	}

	body, err := newMultipartBody(name, stat.Size())
	if err != nil {
		return 0, &FileAccessError{Path: task.Path, Op: "upload", Err: err}
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		task.Url,
		body.ReaderFunc(file, func(processed, total int64) {
			ft.fileTransferStats.UpdateUploadStats(FileUploadInfo{
				Path:          task.Path,
				UploadedBytes: processed,
				TotalBytes:    total,
			})
		}),
	)
	if err != nil {
		return 0, &TransportError{Url: task.Url, Err: err}
	}
	req.Header.Set("Content-Type", body.ContentType())

	resp, err := ft.client.Do(req)
	if err != nil {
		return 0, &TransportError{Url: task.Url, Err: err}
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, newHTTPStatusError(resp)
	}

	// Drain so the connection can be reused by other uploads.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	ft.logger.Debug(
		"default file transfer: uploaded file",
		"path", task.Path,
		"bytes", stat.Size(),
		"status", resp.StatusCode,
	)
	return stat.Size(), nil
}

func newHTTPStatusError(resp *http.Response) *HTTPStatusError {
	statusErr := &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		statusErr.Body = unreadableBody
	} else {
		statusErr.Body = string(body)
	}

	return statusErr
}
