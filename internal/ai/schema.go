package ai

import (
	"resumeforensics/internal/schemas"
	"resumeforensics/internal/types"

	"google.golang.org/genai"
)

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func num(minimum, maximum float64) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Minimum: &minimum, Maximum: &maximum}
}

func enum[T ~string](values ...T) *genai.Schema {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return &genai.Schema{Type: genai.TypeString, Format: "enum", Enum: out}
}

func obj(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func list(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func interviewQuestionSchema() *genai.Schema {
	return obj(map[string]*genai.Schema{
		"question":   str(),
		"type":       enum(types.QuestionBehavioral, types.QuestionTechnical, types.QuestionSituational, types.QuestionTrap),
		"starAnswer": str(),
		"reason":     str(),
	}, "question", "type", "starAnswer", "reason")
}

// analysisResponseSchema mirrors internal/schemas/analysis_result.schema.json.
func analysisResponseSchema() *genai.Schema {
	return obj(map[string]*genai.Schema{
		"overallScore": num(0, 100),
		"scoreBreakdown": obj(map[string]*genai.Schema{
			"structure":    num(0, 100),
			"impact":       num(0, 100),
			"expertise":    num(0, 100),
			"experience":   num(0, 100),
			"presentation": num(0, 100),
		}, "structure", "impact", "expertise", "experience", "presentation"),
		"atsReadability":         num(0, 100),
		"atsRisk":                str(),
		"recruiterJustification": str(),
		"recruiterTips": list(obj(map[string]*genai.Schema{
			"type":          enum(types.TipTypeStrength, types.TipTypeIssue, types.TipTypeRisk),
			"issue":         str(),
			"rectification": str(),
			"impact":        enum(types.ImpactLow, types.ImpactModerate, types.ImpactHigh),
		}, "type", "issue", "rectification", "impact")),
		"extractedData": obj(map[string]*genai.Schema{
			"name":           str(),
			"contact":        str(),
			"phone":          str(),
			"links":          strList(),
			"education":      strList(),
			"experience":     strList(),
			"skills":         strList(),
			"certifications": strList(),
			"projects":       strList(),
			"missingFields":  strList(),
			"ambiguousData":  strList(),
		}, "name", "contact", "education", "experience", "skills", "projects"),
		"bulletCritiques": list(obj(map[string]*genai.Schema{
			"original":  str(),
			"critique":  str(),
			"weakness":  str(),
			"missing":   str(),
			"soWhatGap": str(),
			"rewrites":  strList(),
			"risk":      enum(types.BulletRiskSafe, types.BulletRiskNeedsEvidence, types.BulletRiskHigh),
		}, "original", "critique", "rewrites", "risk")),
		"skillsIntelligence": obj(map[string]*genai.Schema{
			"strengths":       strList(),
			"missing":         strList(),
			"keywords":        strList(),
			"marketRelevance": enum(types.MarketTrending, types.MarketStable, types.MarketDeclining),
		}, "strengths", "missing", "marketRelevance"),
		"narrativeRisk": obj(map[string]*genai.Schema{
			"level":             enum(types.RiskLow, types.RiskMedium, types.RiskHigh),
			"justification":     str(),
			"interviewResponse": str(),
		}, "level", "justification"),
		"verdict": obj(map[string]*genai.Schema{
			"status": enum(types.VerdictShortlist, types.VerdictBorderline, types.VerdictReject),
			"reason": str(),
		}, "status", "reason"),
		"rejectionReasons": strList(),
		"brandingScore":    num(0, 10),
		"resumeIQ":         num(0, 100),
		"eyeTrackingHeatmap": list(obj(map[string]*genai.Schema{
			"section":        str(),
			"attentionScore": num(0, 10),
			"feedback":       str(),
		}, "section", "attentionScore", "feedback")),
		"interviewIntelligence": list(interviewQuestionSchema()),
		"formattingDiagnosis":   strList(),
		"freshnessAudit": obj(map[string]*genai.Schema{
			"outdatedItems": strList(),
			"plan30Days":    str(),
			"plan90Days":    str(),
		}, "outdatedItems", "plan30Days", "plan90Days"),
		"objectionHandling": list(obj(map[string]*genai.Schema{
			"redFlag":         str(),
			"bestExplanation": str(),
			"worstToAvoid":    str(),
		}, "redFlag", "bestExplanation", "worstToAvoid")),
		"idealResumeContent": obj(map[string]*genai.Schema{
			"summary": str(),
			"experience": list(obj(map[string]*genai.Schema{
				"company": str(),
				"role":    str(),
				"period":  str(),
				"bullets": strList(),
			}, "company", "role", "period", "bullets")),
			"education": list(obj(map[string]*genai.Schema{
				"school": str(),
				"degree": str(),
				"year":   str(),
				"honors": str(),
			}, "school", "degree", "year")),
			"skills": strList(),
		}, "summary", "experience", "education", "skills"),
	},
		"overallScore", "scoreBreakdown", "atsReadability", "atsRisk", "recruiterJustification",
		"recruiterTips", "extractedData", "bulletCritiques", "skillsIntelligence", "narrativeRisk",
		"verdict", "brandingScore", "resumeIQ", "eyeTrackingHeatmap", "interviewIntelligence",
		"formattingDiagnosis", "idealResumeContent",
	)
}

func prepDeckResponseSchema() *genai.Schema {
	size := int64(schemas.PrepDeckSize)
	s := list(interviewQuestionSchema())
	s.MinItems = &size
	s.MaxItems = &size
	return s
}
