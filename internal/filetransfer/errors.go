package filetransfer

import (
	"errors"
	"fmt"
)

// ErrInvalidFileName is returned when a path has no usable final segment.
var ErrInvalidFileName = errors.New("invalid file name")

// FileAccessError is returned when the file to upload cannot be read.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file transfer: upload: cannot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// TransportError is returned when no HTTP response was received:
// DNS, connect, TLS or timeout failures, a malformed URL, or a failure
// reading the file while it was being sent.
type TransportError struct {
	Url string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("file transfer: upload: request to %s failed: %v", e.Url, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the server answered outside the 2xx range.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Status: %s, Response: %s", e.Status, e.Body)
}

// TaskAbortedError records a panic inside an upload task.
type TaskAbortedError struct {
	Value any
	Stack []byte
}

func (e *TaskAbortedError) Error() string {
	return fmt.Sprintf("upload task aborted: %v", e.Value)
}

func (e *TaskAbortedError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Error kinds as reported by Classify.
const (
	KindInvalidFileName = "invalid_file_name"
	KindFileAccess      = "file_access"
	KindTransport       = "transport"
	KindHTTPStatus      = "http_status"
	KindTaskAborted     = "task_aborted"
	KindUnknown         = "unknown"
)

// Classify returns the error kind of an upload error, or "" for nil.
func Classify(err error) string {
	var (
		fileAccessErr  *FileAccessError
		transportErr   *TransportError
		httpStatusErr  *HTTPStatusError
		taskAbortedErr *TaskAbortedError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &taskAbortedErr):
		return KindTaskAborted
	case errors.Is(err, ErrInvalidFileName):
		return KindInvalidFileName
	case errors.As(err, &fileAccessErr):
		return KindFileAccess
	case errors.As(err, &httpStatusErr):
		return KindHTTPStatus
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindUnknown
	}
}
