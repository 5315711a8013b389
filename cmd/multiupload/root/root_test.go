package root_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandb/multiupload/cmd/multiupload/root"
	"github.com/wandb/multiupload/internal/filetransfer"
)

// newServer answers uploads of files named "bad*" with a 500.
func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)

		if strings.HasPrefix(filepath.Base(header.Filename), "bad") {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, calls
}

func makeFiles(t *testing.T, names ...string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("data for "+name), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := root.NewRootCmd(viper.New())
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_UploadsAndReportsEachFile(t *testing.T) {
	server, calls := newServer(t)
	paths := makeFiles(t, "good1.txt", "bad.txt", "good2.txt")
	missing := filepath.Join(t.TempDir(), "missing.txt")

	args := append([]string{"--url", server.URL}, paths...)
	args = append(args, missing)
	stdout, _, err := execute(t, args...)

	require.NoError(t, err, "per-file failures must not fail the command")
	assert.Contains(t, stdout, "Successfully uploaded good1.txt to "+server.URL)
	assert.Contains(t, stdout, "Successfully uploaded good2.txt to "+server.URL)
	assert.Contains(t, stdout, "Upload failed for bad.txt: Status: 500 Internal Server Error")
	assert.Contains(t, stdout, "Upload failed for missing.txt:")
	assert.EqualValues(t, 3, calls.Load())
}

func TestRoot_NoFiles(t *testing.T) {
	server, calls := newServer(t)

	stdout, _, err := execute(t, "--url", server.URL)

	require.NoError(t, err)
	assert.Equal(t, "No files provided.\n", stdout)
	assert.EqualValues(t, 0, calls.Load())
}

func TestRoot_MissingURL(t *testing.T) {
	_, _, err := execute(t, "a.txt")
	assert.ErrorContains(t, err, "URL is required")
}

func TestRoot_JSONReportAndMetrics(t *testing.T) {
	server, _ := newServer(t)
	paths := makeFiles(t, "good.txt", "bad.txt")
	metricsPath := filepath.Join(t.TempDir(), "upload.prom")

	args := append([]string{
		"--url", server.URL,
		"--format", "json",
		"--concurrency", "1",
		"--metrics-textfile", metricsPath,
	}, paths...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	var summary filetransfer.ReportSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, "good.txt", summary.Files[0].Name)
	assert.Equal(t, "success", summary.Files[0].Status)
	assert.Equal(t, "bad.txt", summary.Files[1].Name)
	assert.Equal(t, 500, summary.Files[1].StatusCode)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "multiupload_uploads_total")
}
