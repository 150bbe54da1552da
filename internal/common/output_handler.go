package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/export"
	"resumeforensics/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        os.Stdout,
	}
}

// WithWriter sends stdout output to w instead.
func (oh *OutputHandler) WithWriter(w io.Writer) *OutputHandler {
	oh.stdout = w
	return oh
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	// Validate output file
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	// Format output using the registry
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	// Write output
	if config.OutputFile != "" {
		err = oh.fileProcessor.WriteFile(config.OutputFile, []byte(output))
		if err != nil {
			return err // Error already wrapped by WriteFile
		}

		// Log success
		oh.logger.Info("Output written successfully",
			"file", config.OutputFile, "format", config.OutputFormat)
	} else {
		fmt.Fprint(oh.stdout, output)
	}

	return nil
}

// WriteArtifact saves an exported file under dir and returns its path.
func (oh *OutputHandler) WriteArtifact(art *export.Artifact, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, art.FileName)
	if err := oh.fileProcessor.WriteFile(path, art.Data); err != nil {
		return "", err
	}
	oh.logger.Info("Export written", "file", path, "content_type", art.ContentType, "size", len(art.Data))
	return path, nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
