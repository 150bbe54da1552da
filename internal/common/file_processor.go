package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			// Log the error but don't override the main operation result
			if fp.logger != nil {
				fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
			}
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// ReadDocument validates and reads a resume file and returns it with the media
// type it declares.
func (fp *FileProcessor) ReadDocument(filename string) ([]byte, string, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	mediaType, err := utils.DeclaredMediaType(filename)
	if err != nil {
		return nil, "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot determine type of %s", filename), err)
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return nil, "", err
	}

	if fp.logger != nil {
		fp.logger.Debug("Document read",
			"filename", filename,
			"media_type", mediaType,
			"size", utils.FormatFileSize(int64(len(data))))
	}
	return data, mediaType, nil
}

// ReadText reads an optional text file, returning "" for an empty name.
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
