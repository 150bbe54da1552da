// Package encoder turns an uploaded resume into the inline payload sent to the model.
package encoder

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"resumeforensics/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Accepted declared media types.
const (
	MediaTypeText = "text/plain"
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// SupportedMediaTypes is the allow-list checked before any model call.
var SupportedMediaTypes = []string{MediaTypeText, MediaTypePDF, MediaTypeDOCX}

// Normalize lower-cases a media type and strips any parameters.
func Normalize(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsSupported reports whether mediaType is on the allow-list.
func IsSupported(mediaType string) bool {
	mt := Normalize(mediaType)
	for _, s := range SupportedMediaTypes {
		if mt == s {
			return true
		}
	}
	return false
}

// CheckMediaType returns an UNSUPPORTED_FORMAT error for anything off the allow-list.
func CheckMediaType(mediaType string) error {
	if IsSupported(mediaType) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("media type '%s' is not supported", mediaType), nil).
		WithContext("media_type", mediaType)
}

// Document is an encoded upload ready to be attached to a model request.
type Document struct {
	Data       []byte // payload attached inline
	MediaType  string // declared type, normalized
	InlineMIME string // MIME type of Data
	FileName   string
	Size       int
	Pages      int    // PDF page count when the structure probe succeeds
	Text       string // best-effort plain text of the document
}

// Base64 returns the inline payload in standard base64.
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// Encoder validates uploads and prepares inline payloads.
type Encoder struct {
	maxSize int64
	logger  *errors.Logger
}

// New creates an encoder. A maxSize of zero disables the size check.
func New(maxSize int64, logger *errors.Logger) *Encoder {
	return &Encoder{maxSize: maxSize, logger: logger}
}

// Encode validates data against its declared media type and builds the inline payload.
// The allow-list is checked first so unsupported uploads never reach the other checks.
func (e *Encoder) Encode(ctx context.Context, data []byte, declared, fileName string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckMediaType(declared); err != nil {
		return nil, err
	}
	mediaType := Normalize(declared)

	if len(data) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "document is empty", nil).
			WithContext("file_name", fileName)
	}
	if e.maxSize > 0 && int64(len(data)) > e.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("document is %d bytes, limit is %d", len(data), e.maxSize), nil).
			WithContext("file_name", fileName)
	}

	detected := mimetype.Detect(data)
	if !consistent(detected, mediaType) {
		return nil, errors.NewIOError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("content looks like %s, not %s", detected.String(), mediaType), nil).
			WithContext("file_name", fileName).
			WithContext("detected", detected.String())
	}

	doc := &Document{
		Data:       data,
		MediaType:  mediaType,
		InlineMIME: mediaType,
		FileName:   fileName,
		Size:       len(data),
	}

	switch mediaType {
	case MediaTypeText:
		if !utf8.Valid(data) {
			return nil, errors.NewIOError(errors.ErrCodeInvalidFormat, "text document is not valid UTF-8", nil).
				WithContext("file_name", fileName)
		}
		doc.Text = string(data)
	case MediaTypePDF:
		pages, text, err := probePDF(data)
		if err != nil {
			// The model reads PDFs this parser cannot; keep the payload as-is.
			e.warn("PDF structure probe failed", "file_name", fileName, "error", err.Error())
		}
		doc.Pages = pages
		doc.Text = text
	case MediaTypeDOCX:
		// The model does not accept word-processor files inline, so send the text.
		text, err := extractDOCX(data)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read DOCX document", err).
				WithContext("file_name", fileName)
		}
		doc.Text = text
		doc.Data = []byte(text)
		doc.InlineMIME = MediaTypeText
	}

	e.debug("Document encoded",
		"file_name", fileName,
		"media_type", mediaType,
		"inline_mime", doc.InlineMIME,
		"size", doc.Size,
		"pages", doc.Pages)

	return doc, nil
}

// consistent walks the detected type's ancestry looking for the declared type.
// DOCX files are zip containers and may sniff as plain zip.
func consistent(detected *mimetype.MIME, declared string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
		if declared == MediaTypeDOCX && m.Is("application/zip") {
			return true
		}
	}
	return false
}

func probePDF(data []byte) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, "", err
	}
	pages = reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return pages, "", nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return pages, "", nil
	}
	return pages, strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("document has no text")
	}
	return text, nil
}

func (e *Encoder) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Encoder) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
