package encoder

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"resumeforensics/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumeText = "Jane Q. Doe\nSenior Data Engineer\nResponsible for month end close automation\n"

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":   doc,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCheckMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		supported bool
	}{
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"APPLICATION/PDF", true},
		{MediaTypeDOCX, true},
		{"image/png", false},
		{"application/msword", false},
		{"text/html", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			err := CheckMediaType(tt.mediaType)
			if tt.supported {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))
			assert.Equal(t, errors.MessageUnsupportedFormat, errors.UserMessage(err))
		})
	}
}

func TestEncode_Text(t *testing.T) {
	enc := New(1024, nil)

	doc, err := enc.Encode(context.Background(), []byte(resumeText), "text/plain", "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeText, doc.MediaType)
	assert.Equal(t, MediaTypeText, doc.InlineMIME)
	assert.Equal(t, resumeText, doc.Text)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(resumeText)), doc.Base64())
}

func TestEncode_UnsupportedCheckedFirst(t *testing.T) {
	enc := New(1, nil)

	// Empty and oversized, but the media type is what gets reported.
	_, err := enc.Encode(context.Background(), nil, "image/png", "photo.png")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))
}

func TestEncode_Rejections(t *testing.T) {
	enc := New(64, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		data     []byte
		declared string
		code     string
	}{
		{name: "empty", data: nil, declared: MediaTypeText, code: errors.ErrCodeInvalidFormat},
		{name: "too large", data: bytes.Repeat([]byte("a"), 65), declared: MediaTypeText, code: errors.ErrCodeFileTooLarge},
		{name: "pdf declared as text", data: []byte("%PDF-1.4\n%%EOF\n"), declared: MediaTypeText, code: errors.ErrCodeInvalidFormat},
		{name: "text declared as pdf", data: []byte(resumeText), declared: MediaTypePDF, code: errors.ErrCodeInvalidFormat},
		{name: "text declared as docx", data: []byte(resumeText), declared: MediaTypeDOCX, code: errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := enc.Encode(ctx, tt.data, tt.declared, "upload")
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, errors.MessageAnalysisFailed, errors.UserMessage(err))
		})
	}
}

func TestEncode_PDFKeepsPayloadWhenProbeFails(t *testing.T) {
	data := []byte("%PDF-1.4\nnot really a pdf body\n%%EOF\n")
	enc := New(0, nil)

	doc, err := enc.Encode(context.Background(), data, "application/pdf", "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, MediaTypePDF, doc.InlineMIME)
	assert.Equal(t, data, doc.Data)
	assert.Equal(t, 0, doc.Pages)
}

func TestEncode_DOCXSendsExtractedText(t *testing.T) {
	data := buildDOCX(t, "Jane Q. Doe", "Senior Data Engineer")
	enc := New(0, nil)

	doc, err := enc.Encode(context.Background(), data, MediaTypeDOCX, "cv.docx")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeDOCX, doc.MediaType)
	assert.Equal(t, MediaTypeText, doc.InlineMIME)
	assert.Equal(t, "Jane Q. Doe\nSenior Data Engineer", doc.Text)
	assert.Equal(t, []byte(doc.Text), doc.Data)
	assert.Equal(t, len(data), doc.Size)
}

func TestEncode_DOCXWithoutDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("hello"))
	require.NoError(t, zw.Close())

	_, err = New(0, nil).Encode(context.Background(), buf.Bytes(), MediaTypeDOCX, "cv.docx")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotReadable))
}

func TestEncode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(0, nil).Encode(ctx, []byte(resumeText), MediaTypeText, "cv.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
