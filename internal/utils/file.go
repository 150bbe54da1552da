package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// ValidateInputFile checks if a file exists and is readable
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	// Check if file is readable
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ValidateOutputFile checks if the output file path is valid
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		// Check if directory exists or can be created
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}

var extensionMediaTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/plain",
	".markdown": "text/plain",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DeclaredMediaType returns the media type a file announces, the way a browser
// derives it for an upload: by extension first, then by sniffing the content.
func DeclaredMediaType(filename string) (string, error) {
	if mt, ok := extensionMediaTypes[GetFileExtension(filename)]; ok {
		return mt, nil
	}
	mt, err := mimetype.DetectFile(filename)
	if err != nil {
		return "", fmt.Errorf("cannot detect media type of %s: %w", filename, err)
	}
	return strings.SplitN(mt.String(), ";", 2)[0], nil
}

// UploadMediaType is DeclaredMediaType for in-memory uploads: the extension
// first, then the sniffed content.
func UploadMediaType(filename string, data []byte) string {
	if mt, ok := extensionMediaTypes[GetFileExtension(filename)]; ok {
		return mt
	}
	return strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
}

// FileStem turns a display name into a file name stem, collapsing whitespace runs to underscores.
func FileStem(name, fallback string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(name), unicode.IsSpace)
	if len(fields) == 0 {
		return fallback
	}
	stem := strings.Join(fields, "_")
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, stem)
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
