package filetransfer

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartBody_Encoding(t *testing.T) {
	content := []byte("This is a test file content.")
	body, err := newMultipartBody(`we"ird\name.txt`, int64(len(content)))
	require.NoError(t, err)

	var lastProcessed, lastTotal int64
	readerFunc := body.ReaderFunc(bytes.NewReader(content), func(processed, total int64) {
		lastProcessed, lastTotal = processed, total
	})

	reader, err := readerFunc()
	require.NoError(t, err)
	encoded, err := io.ReadAll(reader)
	require.NoError(t, err)

	assert.EqualValues(t, body.Len(), len(encoded))
	assert.Equal(t, int(body.Len()), reader.(*sizedReader).Len())
	assert.EqualValues(t, len(content), lastProcessed)
	assert.EqualValues(t, len(content), lastTotal)

	mediaType, params, err := mime.ParseMediaType(body.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	parts := multipart.NewReader(bytes.NewReader(encoded), params["boundary"])
	part, err := parts.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, `we"ird\name.txt`, part.FileName())
	assert.Equal(t, "application/octet-stream", part.Header.Get("Content-Type"))

	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	_, err = parts.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultipartBody_ReaderFuncIsRepeatable(t *testing.T) {
	content := []byte("0123456789")
	body, err := newMultipartBody("digits.txt", int64(len(content)))
	require.NoError(t, err)

	readerFunc := body.ReaderFunc(bytes.NewReader(content), nil)

	first, err := readerFunc()
	require.NoError(t, err)
	firstBytes, err := io.ReadAll(first)
	require.NoError(t, err)

	second, err := readerFunc()
	require.NoError(t, err)
	secondBytes, err := io.ReadAll(second)
	require.NoError(t, err)

	assert.Equal(t, firstBytes, secondBytes)
}

func TestMultipartBody_EmptyFile(t *testing.T) {
	body, err := newMultipartBody("empty.txt", 0)
	require.NoError(t, err)

	reader, err := body.ReaderFunc(bytes.NewReader(nil), nil)()
	require.NoError(t, err)
	encoded, err := io.ReadAll(reader)
	require.NoError(t, err)

	assert.EqualValues(t, body.Len(), len(encoded))
	assert.Greater(t, body.Len(), int64(0))
}

func TestProgressReader(t *testing.T) {
	var calls []int64
	pr := NewProgressReader(bytes.NewReader([]byte("abcdef")), 6, func(processed, total int64) {
		assert.EqualValues(t, 6, total)
		calls = append(calls, processed)
	})

	buf := make([]byte, 4)
	n, err := pr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = io.ReadAll(pr)
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 6}, calls)
	assert.Equal(t, 6, pr.Len())
}
