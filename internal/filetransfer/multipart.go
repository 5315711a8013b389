package filetransfer

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// formFieldName is the multipart field carrying the file.
	formFieldName = "file"

	partContentType = "application/octet-stream"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody is a multipart/form-data body with a single file part.
//
// Only the part header and the closing boundary are held in memory. The
// file contents are read from the underlying file as the request is
// written, so memory use does not depend on the file size.
type multipartBody struct {
	contentType string

	// head is the opening boundary and the part headers.
	head []byte

	// tail is the closing boundary.
	tail []byte

	// size is the number of file bytes in the part.
	size int64
}

func newMultipartBody(fileName string, size int64) (*multipartBody, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set(
		"Content-Disposition",
		fmt.Sprintf(
			`form-data; name="%s"; filename="%s"`,
			formFieldName,
			quoteEscaper.Replace(fileName),
		),
	)
	header.Set("Content-Type", partContentType)

	if _, err := writer.CreatePart(header); err != nil {
		return nil, err
	}
	head := bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := writer.Close(); err != nil {
		return nil, err
	}
	tail := bytes.Clone(buf.Bytes())

	body := &multipartBody{
		contentType: writer.FormDataContentType(),
		head:        head,
		tail:        tail,
		size:        size,
	}

	if body.Len() > math.MaxInt || body.Len() < 0 {
		return nil, fmt.Errorf("file too large (%d bytes)", size)
	}
	return body, nil
}

// ContentType is the request Content-Type, including the boundary.
func (b *multipartBody) ContentType() string {
	return b.contentType
}

// Len is the exact number of bytes in the encoded body.
func (b *multipartBody) Len() int64 {
	return int64(len(b.head)) + b.size + int64(len(b.tail))
}

// ReaderFunc returns a function producing a fresh reader over the encoded
// body each time it is called, reading file contents from file.
//
// Each reader reads file through its own io.SectionReader, so readers do
// not share an offset.
func (b *multipartBody) ReaderFunc(
	file io.ReaderAt,
	progress func(processed, total int64),
) retryablehttp.ReaderFunc {
	return func() (io.Reader, error) {
		content := NewProgressReader(
			io.NewSectionReader(file, 0, b.size),
			b.size,
			progress,
		)
		return &sizedReader{
			Reader: io.MultiReader(
				bytes.NewReader(b.head),
				content,
				bytes.NewReader(b.tail),
			),
			size: int(b.Len()),
		}, nil
	}
}

// sizedReader is an io.Reader that knows its total length, which lets
// retryablehttp set Content-Length instead of chunking.
type sizedReader struct {
	io.Reader
	size int
}

// Len implements retryablehttp.LenReader.
func (r *sizedReader) Len() int {
	return r.size
}
