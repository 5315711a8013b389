package filetransfer_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// receivedFile is one multipart part as seen by the test server.
type receivedFile struct {
	FieldName     string
	FileName      string
	ContentType   string
	Data          []byte
	Size          int64
	ContentLength int64
	Chunked       bool
}

// uploadServer is an httptest server that parses multipart uploads and
// answers every request with the same status and body.
type uploadServer struct {
	*httptest.Server

	calls atomic.Int32

	// keepData stores part contents; otherwise they are only counted.
	keepData bool

	mu    sync.Mutex
	files []receivedFile
}

func newUploadServer(t *testing.T, status int, body string) *uploadServer {
	t.Helper()
	return startUploadServer(t, status, body, true)
}

// newDiscardingUploadServer is like newUploadServer but only counts the
// bytes of each part.
func newDiscardingUploadServer(t *testing.T, status int) *uploadServer {
	t.Helper()
	return startUploadServer(t, status, "", false)
}

func startUploadServer(t *testing.T, status int, body string, keepData bool) *uploadServer {
	s := &uploadServer{keepData: keepData}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		reader, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			file := receivedFile{
				FieldName:     part.FormName(),
				FileName:      part.FileName(),
				ContentType:   part.Header.Get("Content-Type"),
				ContentLength: r.ContentLength,
				Chunked:       len(r.TransferEncoding) > 0,
			}
			if s.keepData {
				file.Data, err = io.ReadAll(part)
				file.Size = int64(len(file.Data))
			} else {
				file.Size, err = io.Copy(io.Discard, part)
			}
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			s.mu.Lock()
			s.files = append(s.files, file)
			s.mu.Unlock()
		}

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *uploadServer) received() []receivedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedFile(nil), s.files...)
}

func (s *uploadServer) byName() map[string]receivedFile {
	files := make(map[string]receivedFile)
	for _, f := range s.received() {
		files[f.FileName] = f
	}
	return files
}
