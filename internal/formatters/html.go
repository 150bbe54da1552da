package formatters

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/report.html
var reportHTML string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"score":      score,
	"education":  educationLine,
	"list":       orEmpty,
	"join":       func(items []string, empty string) string { return strings.Join(orEmpty(items, empty), ", ") },
	"badgeClass": badgeClass,
}).Parse(reportHTML))

// Dossier identifies a printed report.
type Dossier struct {
	ID string
}

// NewDossier derives the dossier id from the last six digits of the millisecond clock.
func NewDossier(now time.Time) *Dossier {
	return &Dossier{ID: fmt.Sprintf("RA-%06d", now.UnixMilli()%1_000_000)}
}

type emptyLabels struct {
	Projects, Rewrites, Certifications, Education, Experience, Skills string
	Tips, Objections, Outdated, Questions, Bullets, Heatmap, Keywords string
	RoleBullets, Freshness                                            string
}

var labels = emptyLabels{
	Projects:       EmptyProjects,
	Rewrites:       EmptyRewrites,
	Certifications: EmptyCertifications,
	Education:      EmptyEducation,
	Experience:     EmptyExperience,
	Skills:         EmptySkills,
	Tips:           EmptyTips,
	Objections:     EmptyObjections,
	Outdated:       EmptyOutdated,
	Questions:      EmptyQuestions,
	Bullets:        EmptyBullets,
	Heatmap:        EmptyHeatmap,
	Keywords:       EmptyKeywords,
	RoleBullets:    EmptyRoleBullets,
	Freshness:      EmptyFreshness,
}

type htmlView struct {
	Report
	Dossier *Dossier
	Empty   emptyLabels
}

func badgeClass(badge string) string {
	return "badge-" + strings.ReplaceAll(strings.ToLower(badge), " ", "-")
}

// RenderHTML renders rep as a standalone HTML page. A non-nil dossier adds the
// print header used for PDF export.
func RenderHTML(rep Report, dossier *Dossier) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, htmlView{Report: rep, Dossier: dossier, Empty: labels}); err != nil {
		return "", fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.String(), nil
}

// ReportHTMLFormatter renders a Report as HTML without the print header.
type ReportHTMLFormatter struct{}

func (rhf *ReportHTMLFormatter) Format(data any) (string, error) {
	rep, ok := data.(Report)
	if !ok {
		return "", fmt.Errorf("expected Report, got %T", data)
	}
	return RenderHTML(rep, nil)
}

func (rhf *ReportHTMLFormatter) SupportedType() string {
	return "Report"
}
