package types

import (
	"fmt"
	"strings"
	"time"
)

// Industry is the hiring context the model is asked to role-play.
type Industry string

const (
	IndustryAudit      Industry = "Audit / Forensic"
	IndustryFinance    Industry = "Investment Banking / Finance"
	IndustryConsulting Industry = "Consulting"
	IndustryTech       Industry = "Tech / Data"
)

// Industries lists every supported industry in display order.
var Industries = []Industry{IndustryAudit, IndustryFinance, IndustryConsulting, IndustryTech}

var industryAliases = map[string]Industry{
	"audit":      IndustryAudit,
	"forensic":   IndustryAudit,
	"finance":    IndustryFinance,
	"banking":    IndustryFinance,
	"ib":         IndustryFinance,
	"consulting": IndustryConsulting,
	"tech":       IndustryTech,
	"data":       IndustryTech,
}

// ParseIndustry accepts either the full label or a short alias.
func ParseIndustry(s string) (Industry, error) {
	for _, ind := range Industries {
		if strings.EqualFold(string(ind), s) {
			return ind, nil
		}
	}
	if ind, ok := industryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return ind, nil
	}
	return "", fmt.Errorf("unsupported industry '%s'", s)
}

// Region is the hiring market the model benchmarks against.
type Region string

const (
	RegionIndia      Region = "India"
	RegionUS         Region = "US"
	RegionUK         Region = "UK"
	RegionMiddleEast Region = "Middle East"
)

// Regions lists every supported region in display order.
var Regions = []Region{RegionIndia, RegionUS, RegionUK, RegionMiddleEast}

var regionAliases = map[string]Region{
	"in":  RegionIndia,
	"usa": RegionUS,
	"gb":  RegionUK,
	"me":  RegionMiddleEast,
	"mea": RegionMiddleEast,
}

// ParseRegion accepts either the full label or a short alias.
func ParseRegion(s string) (Region, error) {
	for _, r := range Regions {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	if r, ok := regionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unsupported region '%s'", s)
}

type BulletRisk string

const (
	BulletRiskSafe          BulletRisk = "Safe"
	BulletRiskNeedsEvidence BulletRisk = "Needs Evidence"
	BulletRiskHigh          BulletRisk = "High Interview Risk"
)

type TipType string

const (
	TipTypeStrength TipType = "strength"
	TipTypeIssue    TipType = "issue"
	TipTypeRisk     TipType = "risk"
)

type Impact string

const (
	ImpactLow      Impact = "Low"
	ImpactModerate Impact = "Moderate"
	ImpactHigh     Impact = "High"
)

type VerdictStatus string

const (
	VerdictShortlist  VerdictStatus = "Shortlist"
	VerdictBorderline VerdictStatus = "Borderline"
	VerdictReject     VerdictStatus = "Reject"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type MarketRelevance string

const (
	MarketTrending  MarketRelevance = "Trending"
	MarketStable    MarketRelevance = "Stable"
	MarketDeclining MarketRelevance = "Declining"
)

type QuestionType string

const (
	QuestionBehavioral  QuestionType = "Behavioral"
	QuestionTechnical   QuestionType = "Technical"
	QuestionSituational QuestionType = "Situational"
	QuestionTrap        QuestionType = "Trap"
)

// AnalyzeInput is everything the analysis client needs for one request.
type AnalyzeInput struct {
	Document          []byte   `json:"-"`
	MediaType         string   `json:"mediaType"`
	FileName          string   `json:"fileName,omitempty"`
	Industry          Industry `json:"industry"`
	Region            Region   `json:"region"`
	TargetDescription string   `json:"targetDescription,omitempty"`
}

// ScoreBreakdown holds the five sub-scores behind overallScore.
type ScoreBreakdown struct {
	Structure    float64 `json:"structure" validate:"gte=0,lte=100"`
	Impact       float64 `json:"impact" validate:"gte=0,lte=100"`
	Expertise    float64 `json:"expertise" validate:"gte=0,lte=100"`
	Experience   float64 `json:"experience" validate:"gte=0,lte=100"`
	Presentation float64 `json:"presentation" validate:"gte=0,lte=100"`
}

// RecruiterTip is one advisory record.
type RecruiterTip struct {
	Type          TipType `json:"type" validate:"oneof=strength issue risk"`
	Issue         string  `json:"issue"`
	Rectification string  `json:"rectification"`
	Impact        Impact  `json:"impact" validate:"oneof=Low Moderate High"`
}

// ExtractedData is the model's structured restatement of the resume.
type ExtractedData struct {
	Name           string   `json:"name"`
	Contact        string   `json:"contact"`
	Phone          string   `json:"phone,omitempty"`
	Links          []string `json:"links,omitempty"`
	Education      []string `json:"education"`
	Experience     []string `json:"experience"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications,omitempty"`
	Projects       []string `json:"projects"`
	MissingFields  []string `json:"missingFields,omitempty"`
	AmbiguousData  []string `json:"ambiguousData,omitempty"`
}

// BulletCritique audits one original resume bullet.
type BulletCritique struct {
	Original  string     `json:"original"`
	Critique  string     `json:"critique"`
	Weakness  string     `json:"weakness"`
	Missing   string     `json:"missing"`
	SoWhatGap string     `json:"soWhatGap"`
	Rewrites  []string   `json:"rewrites"`
	Risk      BulletRisk `json:"risk" validate:"bulletrisk"`
}

type SkillsIntelligence struct {
	Strengths       []string        `json:"strengths"`
	Missing         []string        `json:"missing"`
	Keywords        []string        `json:"keywords"`
	MarketRelevance MarketRelevance `json:"marketRelevance" validate:"oneof=Trending Stable Declining"`
}

type NarrativeRisk struct {
	Level             RiskLevel `json:"level" validate:"oneof=Low Medium High"`
	Justification     string    `json:"justification"`
	InterviewResponse string    `json:"interviewResponse"`
}

type Verdict struct {
	Status VerdictStatus `json:"status" validate:"oneof=Shortlist Borderline Reject"`
	Reason string        `json:"reason"`
}

// HeatmapSection is a simulated recruiter-attention reading for one section.
type HeatmapSection struct {
	Section        string  `json:"section"`
	AttentionScore float64 `json:"attentionScore" validate:"gte=0,lte=10"`
	Feedback       string  `json:"feedback"`
}

type InterviewQuestion struct {
	Question   string       `json:"question"`
	Type       QuestionType `json:"type" validate:"oneof=Behavioral Technical Situational Trap"`
	StarAnswer string       `json:"starAnswer"`
	Reason     string       `json:"reason"`
}

type FreshnessAudit struct {
	OutdatedItems []string `json:"outdatedItems"`
	Plan30Days    string   `json:"plan30Days"`
	Plan90Days    string   `json:"plan90Days"`
}

type ObjectionHandling struct {
	RedFlag         string `json:"redFlag"`
	BestExplanation string `json:"bestExplanation"`
	WorstToAvoid    string `json:"worstToAvoid"`
}

type IdealExperience struct {
	Company string   `json:"company"`
	Role    string   `json:"role"`
	Period  string   `json:"period"`
	Bullets []string `json:"bullets"`
}

type IdealEducation struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Year   string `json:"year"`
	Honors string `json:"honors,omitempty"`
}

// IdealResume is the model's full rewrite of the candidate's resume.
type IdealResume struct {
	Summary    string            `json:"summary"`
	Experience []IdealExperience `json:"experience" validate:"dive"`
	Education  []IdealEducation  `json:"education" validate:"dive"`
	Skills     []string          `json:"skills"`
}

// AnalysisResult is the structured output of one resume analysis.
// It is produced once per upload and never mutated afterwards.
type AnalysisResult struct {
	OverallScore           float64              `json:"overallScore" validate:"gte=0,lte=100"`
	ScoreBreakdown         ScoreBreakdown       `json:"scoreBreakdown"`
	ATSReadability         float64              `json:"atsReadability" validate:"gte=0,lte=100"`
	ATSRisk                string               `json:"atsRisk"`
	RecruiterJustification string               `json:"recruiterJustification"`
	RecruiterTips          []RecruiterTip       `json:"recruiterTips" validate:"dive"`
	ExtractedData          ExtractedData        `json:"extractedData"`
	BulletCritiques        []BulletCritique     `json:"bulletCritiques" validate:"dive"`
	SkillsIntelligence     SkillsIntelligence   `json:"skillsIntelligence"`
	NarrativeRisk          NarrativeRisk        `json:"narrativeRisk"`
	Verdict                Verdict              `json:"verdict"`
	RejectionReasons       []string             `json:"rejectionReasons,omitempty"`
	BrandingScore          float64              `json:"brandingScore" validate:"gte=0,lte=10"`
	ResumeIQ               float64              `json:"resumeIQ" validate:"gte=0,lte=100"`
	EyeTrackingHeatmap     []HeatmapSection     `json:"eyeTrackingHeatmap" validate:"dive"`
	InterviewIntelligence  []InterviewQuestion  `json:"interviewIntelligence" validate:"dive"`
	FormattingDiagnosis    []string             `json:"formattingDiagnosis"`
	FreshnessAudit         *FreshnessAudit      `json:"freshnessAudit,omitempty"`
	ObjectionHandling      []ObjectionHandling  `json:"objectionHandling,omitempty"`
	IdealResumeContent     IdealResume          `json:"idealResumeContent"`
}

// PrepDeckInput drives generation of a full interview prep deck.
type PrepDeckInput struct {
	ResumeSummary     string   `json:"resumeSummary"`
	Industry          Industry `json:"industry"`
	TargetDescription string   `json:"targetDescription,omitempty"`
}

// PrepDeck is the full set of generated interview questions.
type PrepDeck struct {
	Questions []InterviewQuestion `json:"questions" validate:"dive"`
}

// ChatRole identifies the speaker of a chat turn.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

type ChatInput struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
}

type ChatOutput struct {
	Reply string `json:"reply"`
}

// User is a local account record. It is not an identity or authorization boundary.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Tokens         int       `json:"tokens"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	CompletedTasks []string  `json:"completedTasks"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasCompleted reports whether the user has already been awarded taskID.
func (u *User) HasCompleted(taskID string) bool {
	for _, t := range u.CompletedTasks {
		if t == taskID {
			return true
		}
	}
	return false
}

// HistoryEntry is one stored analysis keyed by a random id.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	UserEmail string         `json:"userEmail,omitempty"`
	FileName  string         `json:"fileName,omitempty"`
	Industry  Industry       `json:"industry"`
	Region    Region         `json:"region"`
	Target    string         `json:"targetDescription,omitempty"`
	Unlocked  bool           `json:"unlocked,omitempty"`
	Result    AnalysisResult `json:"result"`
}

type PricingPlan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Credits  int      `json:"credits"`
	Features []string `json:"features,omitempty"`
}

// State is the single persisted blob of users, history and pricing plans.
type State struct {
	Users   []User         `json:"users"`
	History []HistoryEntry `json:"history"`
	Plans   []PricingPlan  `json:"plans"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Users:   make([]User, len(s.Users)),
		History: make([]HistoryEntry, len(s.History)),
		Plans:   make([]PricingPlan, len(s.Plans)),
	}
	for i, u := range s.Users {
		u.CompletedTasks = append([]string(nil), u.CompletedTasks...)
		out.Users[i] = u
	}
	copy(out.History, s.History)
	for i, p := range s.Plans {
		p.Features = append([]string(nil), p.Features...)
		out.Plans[i] = p
	}
	return out
}

// DefaultPlans are seeded when the stored state has no pricing plans.
func DefaultPlans() []PricingPlan {
	return []PricingPlan{
		{ID: "single", Name: "Single Unlock", Price: "$9.99", Credits: 1, Features: []string{"Full forensic report", "DOCX and PDF export"}},
		{ID: "career", Name: "Career Pack", Price: "$24.99", Credits: 3, Features: []string{"3 report unlocks", "Interview prep deck"}},
		{ID: "executive", Name: "Executive Pass", Price: "$49.99", Credits: 10, Features: []string{"10 report unlocks", "Priority analysis"}},
	}
}
