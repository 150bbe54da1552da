// Package export produces the downloadable PDF dossier and the ATS-optimised DOCX.
package export

import (
	"context"
	"strings"
	"time"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/types"
	"resumeforensics/internal/utils"
)

// Export kinds.
const (
	KindPDF  = "pdf"
	KindDOCX = "docx"
)

// Content types of the produced files.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Artifact is one exported file.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// PDFRenderer turns an HTML page into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Exporter builds export artifacts from an unlocked result.
type Exporter struct {
	renderer PDFRenderer
	now      func() time.Time
	logger   *errors.Logger
}

func New(renderer PDFRenderer, logger *errors.Logger) *Exporter {
	return &Exporter{renderer: renderer, now: time.Now, logger: logger}
}

// Export dispatches on kind.
func (e *Exporter) Export(ctx context.Context, kind string, result *types.AnalysisResult) (*Artifact, error) {
	switch strings.ToLower(kind) {
	case KindPDF:
		return e.PDF(ctx, result)
	case KindDOCX:
		return e.DOCX(result)
	}
	return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
		"unknown export format '"+kind+"' (use pdf or docx)", nil)
}

// PDF renders the full unlocked report with the dossier header.
func (e *Exporter) PDF(ctx context.Context, result *types.AnalysisResult) (*Artifact, error) {
	if e.renderer == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "PDF export is not configured", nil)
	}
	dossier := formatters.NewDossier(e.now())
	html, err := formatters.RenderHTML(formatters.BuildReport(result, true), dossier)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeExportFailed, "failed to render report", err)
	}

	data, err := e.renderer.RenderPDF(ctx, html)
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewIOError(errors.ErrCodeExportFailed, "failed to print PDF", err)
	}

	if e.logger != nil {
		e.logger.Info("PDF dossier exported", "dossier_id", dossier.ID, "size", len(data))
	}
	return &Artifact{
		FileName:    PDFFileName(result.ExtractedData.Name),
		ContentType: ContentTypePDF,
		Data:        data,
	}, nil
}

// DOCX builds the ATS-optimised resume.
func (e *Exporter) DOCX(result *types.AnalysisResult) (*Artifact, error) {
	data, err := BuildDOCX(result)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeExportFailed, "failed to build DOCX", err)
	}
	if e.logger != nil {
		e.logger.Info("DOCX resume exported", "size", len(data))
	}
	return &Artifact{
		FileName:    DOCXFileName(result.ExtractedData.Name),
		ContentType: ContentTypeDOCX,
		Data:        data,
	}, nil
}

// PDFFileName is "<name with whitespace as _>_Career_Intelligence_Dossier.pdf".
func PDFFileName(name string) string {
	return utils.FileStem(name, "Candidate") + "_Career_Intelligence_Dossier.pdf"
}

// DOCXFileName is "<name with whitespace as _>_ATS_Optimized.docx".
func DOCXFileName(name string) string {
	return utils.FileStem(name, "Candidate") + "_ATS_Optimized.docx"
}
