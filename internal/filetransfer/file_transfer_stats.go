package filetransfer

import (
	"sync"
	"sync/atomic"
)

// FileTransferStats tracks byte progress and outcome counts for a batch.
type FileTransferStats interface {
	// GetFilesStats returns byte counts for uploads.
	GetFilesStats() FilesStats

	// GetFileCounts returns the number of finished tasks per status.
	GetFileCounts() FileCounts

	// IsDone returns whether the batch finished.
	IsDone() bool

	// SetDone marks the batch as finished.
	SetDone()

	// UpdateUploadStats updates the upload progress for a file.
	UpdateUploadStats(newInfo FileUploadInfo)

	// RecordOutcome counts a finished task.
	RecordOutcome(outcome Outcome)
}

type FilesStats struct {
	UploadedBytes int64
	TotalBytes    int64
}

type FileCounts struct {
	Succeeded int32
	Failed    int32
	Aborted   int32
}

// FileUploadInfo is information about an in-progress file upload.
type FileUploadInfo struct {
	// The local path to the file being uploaded.
	Path string

	// The number of bytes uploaded so far.
	UploadedBytes int64

	// The total number of bytes being uploaded.
	TotalBytes int64
}

type fileTransferStats struct {
	sync.Mutex

	done *atomic.Bool

	uploadStatsByPath map[string]FileUploadInfo

	uploadedBytes *atomic.Int64
	totalBytes    *atomic.Int64

	succeededCount *atomic.Int32
	failedCount    *atomic.Int32
	abortedCount   *atomic.Int32
}

func NewFileTransferStats() FileTransferStats {
	return &fileTransferStats{
		done: &atomic.Bool{},

		uploadStatsByPath: make(map[string]FileUploadInfo),

		uploadedBytes: &atomic.Int64{},
		totalBytes:    &atomic.Int64{},

		succeededCount: &atomic.Int32{},
		failedCount:    &atomic.Int32{},
		abortedCount:   &atomic.Int32{},
	}
}

func (fts *fileTransferStats) GetFilesStats() FilesStats {
	// NOTE: We don't lock, so these could be out of sync. For instance,
	// TotalBytes could be less than UploadedBytes!
	return FilesStats{
		UploadedBytes: fts.uploadedBytes.Load(),
		TotalBytes:    fts.totalBytes.Load(),
	}
}

func (fts *fileTransferStats) GetFileCounts() FileCounts {
	return FileCounts{
		Succeeded: fts.succeededCount.Load(),
		Failed:    fts.failedCount.Load(),
		Aborted:   fts.abortedCount.Load(),
	}
}

func (fts *fileTransferStats) IsDone() bool {
	return fts.done.Load()
}

func (fts *fileTransferStats) SetDone() {
	fts.done.Store(true)
}

func (fts *fileTransferStats) UpdateUploadStats(newInfo FileUploadInfo) {
	fts.Lock()
	defer fts.Unlock()

	if oldInfo, ok := fts.uploadStatsByPath[newInfo.Path]; ok {
		fts.uploadedBytes.Add(-oldInfo.UploadedBytes)
		fts.totalBytes.Add(-oldInfo.TotalBytes)
	}

	fts.uploadStatsByPath[newInfo.Path] = newInfo
	fts.uploadedBytes.Add(newInfo.UploadedBytes)
	fts.totalBytes.Add(newInfo.TotalBytes)
}

func (fts *fileTransferStats) RecordOutcome(outcome Outcome) {
	switch outcome.Status {
	case StatusSuccess:
		fts.succeededCount.Add(1)
	case StatusFailure:
		fts.failedCount.Add(1)
	case StatusAborted:
		fts.abortedCount.Add(1)
	}
}
