// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"strings"

	"resumeforensics/internal/types"
)

// Strings that only appear in gated sections of AnalysisJSON.
const (
	GatedTipIssue       = "Revenue impact of the pricing engine is never quantified"
	GatedRectification  = "Add the 14% margin uplift with the baseline period"
	GatedCritique       = "Ownership is implied but the scope of the decision is hidden"
	GatedRewrite        = "Cut month-end close from 9 to 4 days by automating 38 reconciliations in Python"
	GatedExtractedSkill = "Kubernetes operators"
	GatedHeatmapNote    = "Recruiters dwell on the first role for under six seconds"
	GatedIdealSummary   = "Data engineer with seven years shipping finance-grade pipelines"
	GatedObjection      = "Gap between 2021 and 2022"
	GatedFreshnessPlan  = "Ship one public dbt project within 30 days"
	VisibleBullet       = "Responsible for month end close automation"
	CandidateName       = "Jane Q. Doe"
)

// AnalysisJSON is a complete, schema-valid model response with a Borderline verdict,
// no projects and one bullet without rewrites.
const AnalysisJSON = `{
  "overallScore": 72,
  "scoreBreakdown": {"structure": 70, "impact": 64, "expertise": 81, "experience": 75, "presentation": 68},
  "atsReadability": 83,
  "atsRisk": "Two-column header may be parsed out of order",
  "recruiterJustification": "Strong technical core, weak commercial signal",
  "recruiterTips": [
    {"type": "issue", "issue": "` + GatedTipIssue + `", "rectification": "` + GatedRectification + `", "impact": "High"},
    {"type": "strength", "issue": "Clear progression across three employers", "rectification": "Keep the reverse chronological order", "impact": "Low"}
  ],
  "extractedData": {
    "name": "` + CandidateName + `",
    "contact": "jane.doe@example.com",
    "phone": "+1 555 0100",
    "links": ["https://github.com/janedoe"],
    "education": ["BSc Computer Science, State University, 2016"],
    "experience": ["Senior Data Engineer, Acme Corp, 2019-2024", "Data Analyst, Beta LLC, 2016-2019"],
    "skills": ["Python", "SQL", "` + GatedExtractedSkill + `"],
    "certifications": [],
    "projects": [],
    "missingFields": ["LinkedIn"],
    "ambiguousData": []
  },
  "bulletCritiques": [
    {
      "original": "` + VisibleBullet + `",
      "critique": "` + GatedCritique + `",
      "weakness": "Passive voice",
      "missing": "Time saved",
      "soWhatGap": "No business outcome",
      "rewrites": ["` + GatedRewrite + `"],
      "risk": "Needs Evidence"
    },
    {
      "original": "Built dashboards for leadership",
      "critique": "Generic",
      "weakness": "No audience size",
      "missing": "Adoption",
      "soWhatGap": "Unclear decision impact",
      "rewrites": [],
      "risk": "Safe"
    }
  ],
  "skillsIntelligence": {"strengths": ["Python"], "missing": ["Airflow"], "keywords": ["ETL", "dbt"], "marketRelevance": "Trending"},
  "narrativeRisk": {"level": "Medium", "justification": "Role titles outpace described scope", "interviewResponse": "Lead with the reconciliation project"},
  "verdict": {"status": "Borderline", "reason": "Technically strong but impact is under-evidenced"},
  "rejectionReasons": ["Impact not quantified"],
  "brandingScore": 6,
  "resumeIQ": 78,
  "eyeTrackingHeatmap": [
    {"section": "Header", "attentionScore": 9, "feedback": "Name and title read instantly"},
    {"section": "Experience", "attentionScore": 7, "feedback": "` + GatedHeatmapNote + `"}
  ],
  "interviewIntelligence": [
    {"question": "Walk me through the close automation", "type": "Behavioral", "starAnswer": "S: manual close; T: cut time; A: automated; R: 4 days", "reason": "Tests ownership"}
  ],
  "formattingDiagnosis": ["Inconsistent date formats"],
  "freshnessAudit": {"outdatedItems": ["Hadoop"], "plan30Days": "` + GatedFreshnessPlan + `", "plan90Days": "Earn a cloud data certification"},
  "objectionHandling": [
    {"redFlag": "` + GatedObjection + `", "bestExplanation": "Caregiving with freelance analytics work", "worstToAvoid": "Saying nothing"}
  ],
  "idealResumeContent": {
    "summary": "` + GatedIdealSummary + `",
    "experience": [
      {"company": "Acme Corp", "role": "Senior Data Engineer", "period": "2019 - 2024", "bullets": ["` + GatedRewrite + `", "Led a team of four engineers"]}
    ],
    "education": [
      {"school": "State University", "degree": "BSc Computer Science", "year": "2016", "honors": "First Class"}
    ],
    "skills": ["Python", "SQL", "dbt"]
  }
}`

// AnalysisJSONWith returns AnalysisJSON with every occurrence of old replaced by new.
func AnalysisJSONWith(old, replacement string) string {
	return strings.ReplaceAll(AnalysisJSON, old, replacement)
}

// AnalysisResult decodes AnalysisJSON. It panics on a broken fixture.
func AnalysisResult() *types.AnalysisResult {
	var r types.AnalysisResult
	if err := json.Unmarshal([]byte(AnalysisJSON), &r); err != nil {
		panic(err)
	}
	return &r
}

// PrepDeckJSON builds a deck response with n questions.
func PrepDeckJSON(n int) string {
	kinds := []types.QuestionType{types.QuestionBehavioral, types.QuestionTechnical, types.QuestionSituational, types.QuestionTrap}
	questions := make([]types.InterviewQuestion, n)
	for i := range questions {
		questions[i] = types.InterviewQuestion{
			Question:   "Question " + string(rune('A'+i%26)),
			Type:       kinds[i%len(kinds)],
			StarAnswer: "Situation, task, action, result",
			Reason:     "Probes depth",
		}
	}
	b, _ := json.Marshal(questions)
	return string(b)
}
