package filetransfer

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"
)

// unknownName is shown for tasks whose path has no usable base name.
const unknownName = "unknown"

// UploadTask is a single file to upload as part of a batch.
type UploadTask struct {
	// Index is the position of the file in the batch input.
	Index int

	// Path is the local path to the file, as given by the caller.
	Path string

	// Name is the file name sent to the server, or "unknown".
	Name string

	// Url is the endpoint to POST to. It is shared by the whole batch.
	Url string
}

func NewUploadTask(index int, path, url string) *UploadTask {
	name, err := DisplayName(path)
	if err != nil {
		name = unknownName
	}
	return &UploadTask{
		Index: index,
		Path:  path,
		Name:  name,
		Url:   url,
	}
}

func (t *UploadTask) String() string {
	return fmt.Sprintf(
		"UploadTask{Index: %d, Path: %s, Name: %s, Url: %s}",
		t.Index, t.Path, t.Name, t.Url,
	)
}

// DisplayName returns the final path segment of path, used as the
// multipart file name.
//
// Paths without a usable final segment ("", ".", "..", a bare root) or
// with a segment that is not valid UTF-8 yield ErrInvalidFileName.
func DisplayName(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidFileName
	}

	base := filepath.Base(path)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "", ErrInvalidFileName
	}
	if filepath.VolumeName(path) == path || !utf8.ValidString(base) {
		return "", ErrInvalidFileName
	}

	return base, nil
}
