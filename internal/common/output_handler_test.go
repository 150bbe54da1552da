package common

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"resumeforensics/internal/encoder"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/export"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputHandler_LockedReportToStdout(t *testing.T) {
	var out bytes.Buffer
	oh := NewOutputHandler(errors.NewLogger(slog.LevelError)).WithWriter(&out)

	rep := formatters.BuildReport(testutil.AnalysisResult(), false)
	require.NoError(t, oh.HandleOutput(rep, CommandConfig{OutputFormat: "text"}))

	assert.Contains(t, out.String(), "BORDERLINE")
	assert.NotContains(t, out.String(), testutil.GatedRewrite)
}

func TestOutputHandler_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.md")
	oh := NewOutputHandler(errors.NewLogger(slog.LevelError))

	rep := formatters.BuildReport(testutil.AnalysisResult(), true)
	require.NoError(t, oh.HandleOutput(rep, CommandConfig{OutputFile: path, OutputFormat: "markdown"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), testutil.GatedIdealSummary)

	err = oh.HandleOutput(rep, CommandConfig{OutputFormat: "yaml"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}

func TestOutputHandler_WriteArtifact(t *testing.T) {
	dir := t.TempDir()
	oh := NewOutputHandler(errors.NewLogger(slog.LevelError))

	path, err := oh.WriteArtifact(&export.Artifact{FileName: "Jane_Q._Doe_ATS_Optimized.docx", Data: []byte("zip")}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Jane_Q._Doe_ATS_Optimized.docx"), path)
}

func TestFileProcessor_ReadDocument(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(errors.NewLogger(slog.LevelError))

	txt := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Jane Q. Doe\nData Engineer"), 0600))
	data, mt, err := fp.ReadDocument(txt)
	require.NoError(t, err)
	assert.Equal(t, encoder.MediaTypeText, mt)
	assert.Equal(t, "Jane Q. Doe\nData Engineer", string(data))

	_, _, err = fp.ReadDocument(filepath.Join(dir, "missing.pdf"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	target, err := fp.ReadText("")
	require.NoError(t, err)
	assert.Empty(t, target)
}
