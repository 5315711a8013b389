package filetransfer

import "io"

// ProgressReader reports how many bytes of a reader have been consumed.
type ProgressReader struct {
	reader   io.Reader
	len      int64
	read     int64
	callback func(processed, total int64)
}

func NewProgressReader(
	reader io.Reader,
	size int64,
	callback func(processed, total int64),
) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		len:      size,
		callback: callback,
	}
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)

	if n > 0 {
		pr.read += int64(n)
		if pr.callback != nil {
			pr.callback(pr.read, pr.len)
		}
	}

	return
}

// Len implements retryablehttp.LenReader.
func (pr *ProgressReader) Len() int {
	return int(pr.len)
}
