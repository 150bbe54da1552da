package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumeforensics/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Report", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "Report", &ReportMarkdownFormatter{})
	registry.RegisterFormatter("html", "Report", &ReportHTMLFormatter{})
	registry.RegisterFormatter("text", "PrepDeck", &PrepDeckTextFormatter{})
	registry.RegisterFormatter("markdown", "PrepDeck", &PrepDeckMarkdownFormatter{})
	registry.RegisterFormatter("text", "History", &HistoryTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case Report:
		return "Report"
	case types.PrepDeck:
		return "PrepDeck"
	case []HistorySummary:
		return "History"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func score(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func writeList(b *strings.Builder, prefix string, items []string, empty string) {
	if len(items) == 0 && empty == "" {
		return
	}
	for _, item := range orEmpty(items, empty) {
		fmt.Fprintf(b, "%s%s\n", prefix, item)
	}
}

// ReportTextFormatter renders a Report as plain text.
type ReportTextFormatter struct{}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	rep, ok := data.(Report)
	if !ok {
		return "", fmt.Errorf("expected Report, got %T", data)
	}
	h := rep.Header
	var output strings.Builder

	output.WriteString("=== FORENSIC RESUME REPORT ===\n")
	fmt.Fprintf(&output, "Candidate: %s\n", h.CandidateName)
	fmt.Fprintf(&output, "Verdict: %s (%s)\n", h.Badge, h.VerdictReason)
	fmt.Fprintf(&output, "Resume IQ: %s\n", score(h.ResumeIQ))
	fmt.Fprintf(&output, "Overall Score: %s/100\n", score(h.OverallScore))
	fmt.Fprintf(&output, "ATS Readability: %s/100\n", score(h.ATSReadability))
	if h.ATSRisk != "" {
		fmt.Fprintf(&output, "ATS Risk: %s\n", h.ATSRisk)
	}
	fmt.Fprintf(&output, "Market Relevance: %s\n", h.MarketRelevance)
	fmt.Fprintf(&output, "Formatting: %s\n", h.FormattingHeadline)
	fmt.Fprintf(&output, "Branding Score: %s/10\n\n", score(h.BrandingScore))

	output.WriteString("=== SCORE BREAKDOWN ===\n")
	sb := h.ScoreBreakdown
	fmt.Fprintf(&output, "Structure: %s\nImpact: %s\nExpertise: %s\nExperience: %s\nPresentation: %s\n\n",
		score(sb.Structure), score(sb.Impact), score(sb.Expertise), score(sb.Experience), score(sb.Presentation))

	if rep.RecruiterJustification != "" {
		output.WriteString("=== RECRUITER VIEW ===\n")
		output.WriteString(rep.RecruiterJustification + "\n")
		writeList(&output, "- ", rep.RejectionReasons, "No rejection reasons")
		output.WriteString("\n")
	}

	output.WriteString("=== BULLET AUDIT ===\n")
	if len(rep.Bullets) == 0 {
		output.WriteString(EmptyBullets + "\n")
	}
	for i, b := range rep.Bullets {
		fmt.Fprintf(&output, "%d. [%s] %s\n", i+1, b.Risk, b.Original)
		if b.Detail != nil {
			fmt.Fprintf(&output, "   Critique: %s\n", b.Detail.Critique)
			fmt.Fprintf(&output, "   Weakness: %s\n", b.Detail.Weakness)
			fmt.Fprintf(&output, "   So-what gap: %s\n", b.Detail.SoWhatGap)
			fmt.Fprintf(&output, "   Missing: %s\n", b.Detail.Missing)
			writeList(&output, "   -> ", b.Detail.Rewrites, EmptyRewrites)
		}
	}
	output.WriteString("\n")

	output.WriteString("=== SKILLS INTELLIGENCE ===\n")
	fmt.Fprintf(&output, "Strengths: %s\n", strings.Join(orEmpty(rep.Skills.Strengths, EmptySkills), ", "))
	fmt.Fprintf(&output, "Missing: %s\n", strings.Join(orEmpty(rep.Skills.Missing, EmptyKeywords), ", "))
	fmt.Fprintf(&output, "Keywords: %s\n\n", strings.Join(orEmpty(rep.Skills.Keywords, EmptyKeywords), ", "))

	output.WriteString("=== NARRATIVE RISK ===\n")
	fmt.Fprintf(&output, "Level: %s\n%s\nSuggested response: %s\n\n",
		rep.Narrative.Level, rep.Narrative.Justification, rep.Narrative.InterviewResponse)

	output.WriteString("=== INTERVIEW INTELLIGENCE ===\n")
	writeQuestionsText(&output, rep.Interview)
	output.WriteString("\n")

	if !rep.Unlocked {
		for _, label := range rep.Locked {
			fmt.Fprintf(&output, "[%s]\n", label)
		}
		return output.String(), nil
	}

	writeUnlockedText(&output, rep)
	return output.String(), nil
}

func writeQuestionsText(output *strings.Builder, questions []types.InterviewQuestion) {
	if len(questions) == 0 {
		output.WriteString(EmptyQuestions + "\n")
	}
	for i, q := range questions {
		fmt.Fprintf(output, "%d. [%s] %s\n", i+1, q.Type, q.Question)
		fmt.Fprintf(output, "   STAR: %s\n", q.StarAnswer)
		fmt.Fprintf(output, "   Why: %s\n", q.Reason)
	}
}

func writeUnlockedText(output *strings.Builder, rep Report) {
	if ex := rep.Extracted; ex != nil {
		output.WriteString("=== DOCUMENT VIEW ===\n")
		fmt.Fprintf(output, "Name: %s\nContact: %s\n", ex.Name, ex.Contact)
		if ex.Phone != "" {
			fmt.Fprintf(output, "Phone: %s\n", ex.Phone)
		}
		writeList(output, "Link: ", ex.Links, "")
		output.WriteString("Experience:\n")
		writeList(output, "- ", ex.Experience, EmptyExperience)
		output.WriteString("Education:\n")
		writeList(output, "- ", ex.Education, EmptyEducation)
		output.WriteString("Skills:\n")
		writeList(output, "- ", ex.Skills, EmptySkills)
		output.WriteString("Projects:\n")
		writeList(output, "- ", ex.Projects, EmptyProjects)
		output.WriteString("Certifications:\n")
		writeList(output, "- ", ex.Certifications, EmptyCertifications)
		output.WriteString("\n")
	}

	output.WriteString("=== EYE-TRACKING HEATMAP ===\n")
	if len(rep.Heatmap) == 0 {
		output.WriteString(EmptyHeatmap + "\n")
	}
	for _, s := range rep.Heatmap {
		fmt.Fprintf(output, "%s (%s/10): %s\n", s.Section, score(s.AttentionScore), s.Feedback)
	}
	output.WriteString("\n")

	output.WriteString("=== RECRUITER TIPS ===\n")
	if len(rep.Tips) == 0 {
		output.WriteString(EmptyTips + "\n")
	}
	for _, tip := range rep.Tips {
		fmt.Fprintf(output, "[%s/%s] %s\n   Fix: %s\n", tip.Type, tip.Impact, tip.Issue, tip.Rectification)
	}
	output.WriteString("\n")

	output.WriteString("=== OBJECTION HANDLING ===\n")
	if len(rep.Objections) == 0 {
		output.WriteString(EmptyObjections + "\n")
	}
	for _, o := range rep.Objections {
		fmt.Fprintf(output, "Red flag: %s\n   Say: %s\n   Avoid: %s\n", o.RedFlag, o.BestExplanation, o.WorstToAvoid)
	}
	output.WriteString("\n")

	output.WriteString("=== FRESHNESS AUDIT ===\n")
	if f := rep.Freshness; f != nil {
		writeList(output, "- ", f.OutdatedItems, EmptyOutdated)
		fmt.Fprintf(output, "30 days: %s\n90 days: %s\n\n", f.Plan30Days, f.Plan90Days)
	} else {
		output.WriteString(EmptyFreshness + "\n\n")
	}

	if ideal := rep.IdealResume; ideal != nil {
		output.WriteString("=== IDEAL RESUME ===\n")
		output.WriteString(ideal.Summary + "\n")
		output.WriteString("Experience:\n")
		if len(ideal.Experience) == 0 {
			output.WriteString(EmptyExperience + "\n")
		}
		for _, exp := range ideal.Experience {
			fmt.Fprintf(output, "%s | %s | %s\n", exp.Role, exp.Company, exp.Period)
			writeList(output, "  - ", exp.Bullets, EmptyRoleBullets)
		}
		output.WriteString("Education:\n")
		if len(ideal.Education) == 0 {
			output.WriteString(EmptyEducation + "\n")
		}
		for _, edu := range ideal.Education {
			output.WriteString(educationLine(edu) + "\n")
		}
		fmt.Fprintf(output, "Skills: %s\n", strings.Join(orEmpty(ideal.Skills, EmptySkills), ", "))
	}
}

// ReportMarkdownFormatter renders a Report as Markdown.
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	rep, ok := data.(Report)
	if !ok {
		return "", fmt.Errorf("expected Report, got %T", data)
	}
	h := rep.Header
	var output strings.Builder

	fmt.Fprintf(&output, "# %s\n\n", h.CandidateName)
	fmt.Fprintf(&output, "**%s** - %s\n\n", h.Badge, h.VerdictReason)
	output.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Resume IQ | %s |\n", score(h.ResumeIQ))
	fmt.Fprintf(&output, "| Overall | %s/100 |\n", score(h.OverallScore))
	fmt.Fprintf(&output, "| Structure | %s |\n", score(h.ScoreBreakdown.Structure))
	fmt.Fprintf(&output, "| Impact | %s |\n", score(h.ScoreBreakdown.Impact))
	fmt.Fprintf(&output, "| Expertise | %s |\n", score(h.ScoreBreakdown.Expertise))
	fmt.Fprintf(&output, "| Experience | %s |\n", score(h.ScoreBreakdown.Experience))
	fmt.Fprintf(&output, "| Presentation | %s |\n", score(h.ScoreBreakdown.Presentation))
	fmt.Fprintf(&output, "| ATS Readability | %s/100 |\n", score(h.ATSReadability))
	fmt.Fprintf(&output, "| Market Relevance | %s |\n", h.MarketRelevance)
	fmt.Fprintf(&output, "| Formatting | %s |\n\n", h.FormattingHeadline)

	output.WriteString("## Bullet Audit\n\n")
	if len(rep.Bullets) == 0 {
		output.WriteString("_" + EmptyBullets + "_\n")
	}
	for _, b := range rep.Bullets {
		fmt.Fprintf(&output, "- **%s** %s\n", b.Risk, b.Original)
		if b.Detail != nil {
			fmt.Fprintf(&output, "  - Critique: %s\n  - Weakness: %s\n  - So-what gap: %s\n  - Missing: %s\n",
				b.Detail.Critique, b.Detail.Weakness, b.Detail.SoWhatGap, b.Detail.Missing)
			writeList(&output, "  - Rewrite: ", b.Detail.Rewrites, EmptyRewrites)
		}
	}

	output.WriteString("\n## Skills Intelligence\n\n")
	fmt.Fprintf(&output, "- Strengths: %s\n", strings.Join(orEmpty(rep.Skills.Strengths, EmptySkills), ", "))
	fmt.Fprintf(&output, "- Missing: %s\n", strings.Join(orEmpty(rep.Skills.Missing, EmptyKeywords), ", "))
	fmt.Fprintf(&output, "- Keywords: %s\n", strings.Join(orEmpty(rep.Skills.Keywords, EmptyKeywords), ", "))

	fmt.Fprintf(&output, "\n## Narrative Risk: %s\n\n%s\n\n> %s\n", rep.Narrative.Level,
		rep.Narrative.Justification, rep.Narrative.InterviewResponse)

	output.WriteString("\n## Interview Intelligence\n\n")
	writeQuestionsMarkdown(&output, rep.Interview)

	if !rep.Unlocked {
		output.WriteString("\n")
		for _, label := range rep.Locked {
			fmt.Fprintf(&output, "> 🔒 %s\n", label)
		}
		return output.String(), nil
	}

	if ex := rep.Extracted; ex != nil {
		output.WriteString("\n## Document View\n\n")
		fmt.Fprintf(&output, "**%s** | %s\n\n", ex.Name, ex.Contact)
		output.WriteString("### Experience\n")
		writeList(&output, "- ", ex.Experience, EmptyExperience)
		output.WriteString("### Education\n")
		writeList(&output, "- ", ex.Education, EmptyEducation)
		output.WriteString("### Skills\n")
		writeList(&output, "- ", ex.Skills, EmptySkills)
		output.WriteString("### Projects\n")
		writeList(&output, "- ", ex.Projects, EmptyProjects)
		output.WriteString("### Certifications\n")
		writeList(&output, "- ", ex.Certifications, EmptyCertifications)
	}

	output.WriteString("\n## Recruiter Tips\n\n")
	if len(rep.Tips) == 0 {
		output.WriteString("_" + EmptyTips + "_\n")
	}
	for _, tip := range rep.Tips {
		fmt.Fprintf(&output, "- **%s** (%s impact): %s  \n  Fix: %s\n", tip.Type, tip.Impact, tip.Issue, tip.Rectification)
	}

	output.WriteString("\n## Eye-Tracking Heatmap\n\n")
	if len(rep.Heatmap) == 0 {
		output.WriteString("_" + EmptyHeatmap + "_\n")
	}
	for _, s := range rep.Heatmap {
		fmt.Fprintf(&output, "- %s: %s/10, %s\n", s.Section, score(s.AttentionScore), s.Feedback)
	}

	output.WriteString("\n## Objection Handling\n\n")
	if len(rep.Objections) == 0 {
		output.WriteString("_" + EmptyObjections + "_\n")
	}
	for _, o := range rep.Objections {
		fmt.Fprintf(&output, "- **%s**\n  - Say: %s\n  - Avoid: %s\n", o.RedFlag, o.BestExplanation, o.WorstToAvoid)
	}

	output.WriteString("\n## Freshness Audit\n\n")
	if f := rep.Freshness; f != nil {
		writeList(&output, "- ", f.OutdatedItems, EmptyOutdated)
		fmt.Fprintf(&output, "\n**30 days:** %s  \n**90 days:** %s\n", f.Plan30Days, f.Plan90Days)
	} else {
		output.WriteString("_" + EmptyFreshness + "_\n")
	}

	if ideal := rep.IdealResume; ideal != nil {
		output.WriteString("\n## Ideal Resume\n\n")
		output.WriteString(ideal.Summary + "\n")
		if len(ideal.Experience) == 0 {
			output.WriteString("\n_" + EmptyExperience + "_\n")
		}
		for _, exp := range ideal.Experience {
			fmt.Fprintf(&output, "\n### %s, %s (%s)\n", exp.Role, exp.Company, exp.Period)
			writeList(&output, "- ", exp.Bullets, EmptyRoleBullets)
		}
		output.WriteString("\n### Education\n")
		if len(ideal.Education) == 0 {
			output.WriteString("_" + EmptyEducation + "_\n")
		}
		for _, edu := range ideal.Education {
			output.WriteString("- " + educationLine(edu) + "\n")
		}
		fmt.Fprintf(&output, "\n**Skills:** %s\n", strings.Join(orEmpty(ideal.Skills, EmptySkills), ", "))
	}
	return output.String(), nil
}

// educationLine renders an ideal resume education entry, honors included.
func educationLine(edu types.IdealEducation) string {
	line := fmt.Sprintf("%s, %s, %s", edu.Degree, edu.School, edu.Year)
	if edu.Honors != "" {
		line += " (" + edu.Honors + ")"
	}
	return line
}

func writeQuestionsMarkdown(output *strings.Builder, questions []types.InterviewQuestion) {
	if len(questions) == 0 {
		output.WriteString("_" + EmptyQuestions + "_\n")
	}
	for i, q := range questions {
		fmt.Fprintf(output, "%d. **[%s]** %s\n   - STAR: %s\n   - Why: %s\n", i+1, q.Type, q.Question, q.StarAnswer, q.Reason)
	}
}

// PrepDeckTextFormatter renders a prep deck as plain text.
type PrepDeckTextFormatter struct{}

func (ptf *PrepDeckTextFormatter) Format(data any) (string, error) {
	deck, ok := data.(types.PrepDeck)
	if !ok {
		return "", fmt.Errorf("expected PrepDeck, got %T", data)
	}
	var output strings.Builder
	fmt.Fprintf(&output, "=== INTERVIEW PREP DECK (%d questions) ===\n", len(deck.Questions))
	writeQuestionsText(&output, deck.Questions)
	return output.String(), nil
}

func (ptf *PrepDeckTextFormatter) SupportedType() string {
	return "PrepDeck"
}

// PrepDeckMarkdownFormatter renders a prep deck as Markdown.
type PrepDeckMarkdownFormatter struct{}

func (pmf *PrepDeckMarkdownFormatter) Format(data any) (string, error) {
	deck, ok := data.(types.PrepDeck)
	if !ok {
		return "", fmt.Errorf("expected PrepDeck, got %T", data)
	}
	var output strings.Builder
	output.WriteString("# Interview Prep Deck\n\n")
	writeQuestionsMarkdown(&output, deck.Questions)
	return output.String(), nil
}

func (pmf *PrepDeckMarkdownFormatter) SupportedType() string {
	return "PrepDeck"
}

// HistoryTextFormatter renders stored analyses as one line each.
type HistoryTextFormatter struct{}

func (htf *HistoryTextFormatter) Format(data any) (string, error) {
	rows, ok := data.([]HistorySummary)
	if !ok {
		return "", fmt.Errorf("expected []HistorySummary, got %T", data)
	}
	if len(rows) == 0 {
		return "No analyses recorded\n", nil
	}
	var output strings.Builder
	for _, e := range rows {
		fmt.Fprintf(&output, "%s  %s  %-16s %-10s %3s  %s  %s\n",
			e.ID, e.Timestamp.Format("2006-01-02 15:04"), e.Industry, e.Region,
			score(e.OverallScore), e.Badge, e.FileName)
	}
	return output.String(), nil
}

func (htf *HistoryTextFormatter) SupportedType() string {
	return "History"
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return "Report"
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return "Report"
}

// GlobalRegistry is the default registry instance
var GlobalRegistry = NewFormatterRegistry()
