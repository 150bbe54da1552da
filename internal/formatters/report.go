package formatters

import (
	"strings"
	"time"

	"resumeforensics/internal/types"
)

// Verdict badges.
const (
	BadgeRecommended    = "RECOMMENDED"
	BadgeBorderline     = "BORDERLINE"
	BadgeNotRecommended = "NOT RECOMMENDED"
)

// Gated section names. A locked section renders as "<name> Locked".
const (
	SectionDocumentView   = "Document View"
	SectionHeatmap        = "Eye-Tracking Heatmap"
	SectionRecruiterTips  = "Recruiter Tips"
	SectionBulletDetails  = "Bullet Critique Details"
	SectionObjections     = "Objection Handling"
	SectionFreshness      = "Freshness Audit"
	SectionIdealResume    = "Ideal Resume"
	defaultFormattingNote = "Optimized"
)

// GatedSections lists every section withheld from a locked report, in display order.
var GatedSections = []string{
	SectionDocumentView,
	SectionHeatmap,
	SectionRecruiterTips,
	SectionBulletDetails,
	SectionObjections,
	SectionFreshness,
	SectionIdealResume,
}

// Labels for empty collections.
const (
	EmptyProjects       = "No projects listed"
	EmptyRewrites       = "No rewrites suggested"
	EmptyCertifications = "No certifications listed"
	EmptyEducation      = "No education listed"
	EmptyExperience     = "No experience listed"
	EmptySkills         = "No skills listed"
	EmptyTips           = "No recruiter tips"
	EmptyObjections     = "No red flags to handle"
	EmptyOutdated       = "No outdated items"
	EmptyQuestions      = "No interview questions"
	EmptyBullets        = "No bullets audited"
	EmptyHeatmap        = "No heatmap readings"
	EmptyKeywords       = "None identified"
	EmptyRoleBullets    = "No bullets listed"
	EmptyFreshness      = "No freshness audit"
)

// LockedLabel is the placeholder shown in place of a gated section.
func LockedLabel(section string) string {
	return section + " Locked"
}

// VerdictBadge maps a verdict to its badge. Unknown verdicts read as borderline.
func VerdictBadge(status types.VerdictStatus) string {
	switch status {
	case types.VerdictShortlist:
		return BadgeRecommended
	case types.VerdictReject:
		return BadgeNotRecommended
	default:
		return BadgeBorderline
	}
}

// Header is the ungated summary at the top of every report.
type Header struct {
	CandidateName      string               `json:"candidateName"`
	ResumeIQ           float64              `json:"resumeIQ"`
	Badge              string               `json:"badge"`
	Verdict            types.VerdictStatus  `json:"verdict"`
	VerdictReason      string               `json:"verdictReason"`
	OverallScore       float64              `json:"overallScore"`
	ScoreBreakdown     types.ScoreBreakdown `json:"scoreBreakdown"`
	ATSReadability     float64              `json:"atsReadability"`
	ATSRisk            string               `json:"atsRisk,omitempty"`
	MarketRelevance    string               `json:"marketRelevance"`
	FormattingHeadline string               `json:"formattingHeadline"`
	BrandingScore      float64              `json:"brandingScore"`
}

// BulletDetail is the gated half of a bullet critique.
type BulletDetail struct {
	Critique  string   `json:"critique"`
	Weakness  string   `json:"weakness"`
	SoWhatGap string   `json:"soWhatGap"`
	Missing   string   `json:"missing"`
	Rewrites  []string `json:"rewrites"`
}

type Bullet struct {
	Original string           `json:"original"`
	Risk     types.BulletRisk `json:"risk"`
	Detail   *BulletDetail    `json:"detail,omitempty"`
}

// Report is the render model. Gated fields are nil when the report is locked,
// so no renderer can leak them.
type Report struct {
	Unlocked               bool                      `json:"unlocked"`
	Header                 Header                    `json:"header"`
	RecruiterJustification string                    `json:"recruiterJustification,omitempty"`
	RejectionReasons       []string                  `json:"rejectionReasons,omitempty"`
	FormattingDiagnosis    []string                  `json:"formattingDiagnosis,omitempty"`
	Bullets                []Bullet                  `json:"bullets"`
	Skills                 types.SkillsIntelligence  `json:"skillsIntelligence"`
	Narrative              types.NarrativeRisk       `json:"narrativeRisk"`
	Interview              []types.InterviewQuestion `json:"interviewIntelligence"`
	Locked                 []string                  `json:"locked,omitempty"`

	Extracted   *types.ExtractedData      `json:"extractedData,omitempty"`
	Heatmap     []types.HeatmapSection    `json:"eyeTrackingHeatmap,omitempty"`
	Tips        []types.RecruiterTip      `json:"recruiterTips,omitempty"`
	Objections  []types.ObjectionHandling `json:"objectionHandling,omitempty"`
	Freshness   *types.FreshnessAudit     `json:"freshnessAudit,omitempty"`
	IdealResume *types.IdealResume        `json:"idealResumeContent,omitempty"`
}

// BuildReport projects a result into its render model. It does not modify r.
func BuildReport(r *types.AnalysisResult, unlocked bool) Report {
	headline := defaultFormattingNote
	if len(r.FormattingDiagnosis) > 0 && strings.TrimSpace(r.FormattingDiagnosis[0]) != "" {
		headline = r.FormattingDiagnosis[0]
	}

	rep := Report{
		Unlocked: unlocked,
		Header: Header{
			CandidateName:      r.ExtractedData.Name,
			ResumeIQ:           r.ResumeIQ,
			Badge:              VerdictBadge(r.Verdict.Status),
			Verdict:            r.Verdict.Status,
			VerdictReason:      r.Verdict.Reason,
			OverallScore:       r.OverallScore,
			ScoreBreakdown:     r.ScoreBreakdown,
			ATSReadability:     r.ATSReadability,
			ATSRisk:            r.ATSRisk,
			MarketRelevance:    string(r.SkillsIntelligence.MarketRelevance),
			FormattingHeadline: headline,
			BrandingScore:      r.BrandingScore,
		},
		RecruiterJustification: r.RecruiterJustification,
		RejectionReasons:       r.RejectionReasons,
		FormattingDiagnosis:    r.FormattingDiagnosis,
		Skills:                 r.SkillsIntelligence,
		Narrative:              r.NarrativeRisk,
		Interview:              r.InterviewIntelligence,
	}

	rep.Bullets = make([]Bullet, len(r.BulletCritiques))
	for i, bc := range r.BulletCritiques {
		rep.Bullets[i] = Bullet{Original: bc.Original, Risk: bc.Risk}
		if unlocked {
			rep.Bullets[i].Detail = &BulletDetail{
				Critique:  bc.Critique,
				Weakness:  bc.Weakness,
				SoWhatGap: bc.SoWhatGap,
				Missing:   bc.Missing,
				Rewrites:  bc.Rewrites,
			}
		}
	}

	if !unlocked {
		rep.Locked = make([]string, len(GatedSections))
		for i, s := range GatedSections {
			rep.Locked[i] = LockedLabel(s)
		}
		return rep
	}

	extracted := r.ExtractedData
	ideal := r.IdealResumeContent
	rep.Extracted = &extracted
	rep.Heatmap = nonNil(r.EyeTrackingHeatmap)
	rep.Tips = nonNil(r.RecruiterTips)
	rep.Objections = nonNil(r.ObjectionHandling)
	rep.Freshness = r.FreshnessAudit
	rep.IdealResume = &ideal
	return rep
}

// HistorySummary is the listing view of a stored analysis. It carries only
// header fields, so a locked entry leaks nothing gated.
type HistorySummary struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	FileName     string         `json:"fileName,omitempty"`
	Industry     types.Industry `json:"industry"`
	Region       types.Region   `json:"region"`
	OverallScore float64        `json:"overallScore"`
	ResumeIQ     float64        `json:"resumeIQ"`
	Badge        string         `json:"badge"`
	Unlocked     bool           `json:"unlocked"`
}

// SummarizeHistory projects stored entries into listing rows, preserving order.
func SummarizeHistory(entries []types.HistoryEntry) []HistorySummary {
	rows := make([]HistorySummary, len(entries))
	for i, e := range entries {
		rows[i] = HistorySummary{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			FileName:     e.FileName,
			Industry:     e.Industry,
			Region:       e.Region,
			OverallScore: e.Result.OverallScore,
			ResumeIQ:     e.Result.ResumeIQ,
			Badge:        VerdictBadge(e.Result.Verdict.Status),
			Unlocked:     e.Unlocked,
		}
	}
	return rows
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// orEmpty returns items, or a single empty label when there are none.
func orEmpty(items []string, label string) []string {
	if len(items) == 0 {
		return []string{label}
	}
	return items
}
