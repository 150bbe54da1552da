package export

import (
	"archive/zip"
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"resumeforensics/internal/encoder"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "Jane_Q._Doe_Career_Intelligence_Dossier.pdf", PDFFileName(testutil.CandidateName))
	assert.Equal(t, "Jane_Q._Doe_ATS_Optimized.docx", DOCXFileName(testutil.CandidateName))
	assert.Equal(t, "Mary_Ann_Lee_ATS_Optimized.docx", DOCXFileName("  Mary \t Ann  Lee "))
	assert.Equal(t, "Candidate_Career_Intelligence_Dossier.pdf", PDFFileName(""))
}

func TestExporter_PDF(t *testing.T) {
	renderer := &fakeRenderer{}
	e := New(renderer, nil)
	e.now = func() time.Time { return time.UnixMilli(1_700_000_654_321) }

	art, err := e.PDF(context.Background(), testutil.AnalysisResult())
	require.NoError(t, err)
	assert.Equal(t, "Jane_Q._Doe_Career_Intelligence_Dossier.pdf", art.FileName)
	assert.Equal(t, ContentTypePDF, art.ContentType)
	assert.Equal(t, []byte("%PDF-1.7 fake"), art.Data)

	assert.Contains(t, renderer.html, "RESUME ANALYZER")
	assert.Contains(t, renderer.html, "Forensic Dossier ID: RA-654321")
	assert.Contains(t, renderer.html, "Confidential Intelligence Report")
	assert.Contains(t, renderer.html, testutil.GatedIdealSummary)
	assert.NotContains(t, renderer.html, "data-locked")
}

func TestExporter_PDFFailure(t *testing.T) {
	e := New(&fakeRenderer{err: stderrors.New("chrome not found")}, nil)
	_, err := e.PDF(context.Background(), testutil.AnalysisResult())
	assert.True(t, errors.HasCode(err, errors.ErrCodeExportFailed))

	_, err = New(nil, nil).PDF(context.Background(), testutil.AnalysisResult())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestExporter_Dispatch(t *testing.T) {
	e := New(&fakeRenderer{}, nil)

	art, err := e.Export(context.Background(), "DOCX", testutil.AnalysisResult())
	require.NoError(t, err)
	assert.Equal(t, ContentTypeDOCX, art.ContentType)

	_, err = e.Export(context.Background(), "rtf", testutil.AnalysisResult())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestBuildDOCX_Lossless(t *testing.T) {
	r := testutil.AnalysisResult()
	data, err := BuildDOCX(r)
	require.NoError(t, err)

	doc, err := encoder.New(0, nil).Encode(context.Background(), data, encoder.MediaTypeDOCX, "out.docx")
	require.NoError(t, err)
	text := doc.Text

	ideal := r.IdealResumeContent
	want := []string{r.ExtractedData.Name, r.ExtractedData.Contact, ideal.Summary}
	for _, exp := range ideal.Experience {
		want = append(want, exp.Company, exp.Role, exp.Period, exp.Company+" | "+exp.Period)
		want = append(want, exp.Bullets...)
	}
	for _, edu := range ideal.Education {
		want = append(want, edu.School, edu.Degree, edu.Year, edu.Honors, edu.Degree+" ("+edu.Honors+")")
	}
	want = append(want, ideal.Skills...)
	want = append(want, strings.Join(ideal.Skills, " • "))

	for _, s := range want {
		assert.Contains(t, text, s)
	}

	order := []string{HeadingSummary, HeadingExperience, HeadingEducation, HeadingSkills}
	last := -1
	for _, h := range order {
		idx := strings.Index(text, h)
		require.Greater(t, idx, last, h)
		last = idx
	}
}

func TestBuildDOCX_Package(t *testing.T) {
	r := testutil.AnalysisResult()
	r.ExtractedData.Name = "A & B <Consulting>"
	data, err := BuildDOCX(r)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}, names)

	rc, err := zr.File[2].Open()
	require.NoError(t, err)
	defer rc.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(rc)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "A &amp; B &lt;Consulting&gt;")
	assert.Contains(t, body.String(), `<w:jc w:val="center"/>`)
	assert.Contains(t, body.String(), "<w:b/><w:i/>")
}
