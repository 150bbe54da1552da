package ai

import (
	"fmt"
	"strings"

	"resumeforensics/internal/config"
	"resumeforensics/internal/types"
)

// Prompts holds the system instruction and user template for one operation.
type Prompts struct {
	System string
	User   string
}

// DefaultAnalyzePrompts drive the forensic resume audit.
// User placeholders: {industry}, {region}, {comparison}.
var DefaultAnalyzePrompts = Prompts{
	User: `Analyze this resume as a Senior Hiring Partner at a {industry} firm in {region}.
{comparison}

MANDATORY REQUIREMENTS:
1. Be brutally honest. Sound like a corporate recruiter or managing director.
2. Conduct a forensic audit of all experience bullets.
3. Generate an 'idealResumeContent' which is a full, ready-to-use version of the resume. Include a summary, all experience items with optimized bullets, education, and skills.
4. IMPORTANT: In 'idealResumeContent', ensure 'contact' is detailed (Phone, Email, LinkedIn, Portfolio/Website if found).
5. Evaluate the 'resumeIQ' based on content quality, ATS safety, and narrative strength.
6. Generate 5 high-stakes interview questions with STAR-format answer guides in 'interviewIntelligence'.
7. Identify SPECIFIC issues (formatting, logic, gaps) and provide 'recruiterTips'.
   - EACH TIP MUST include: 'issue' (what is wrong), 'rectification' (how exactly to fix it), 'impact' (Low/Moderate/High).
8. Return the response in the specified JSON schema.`,
}

// DefaultPrepDeckPrompts drive interview prep deck generation.
// User placeholders: {summary}, {industry}, {target}.
var DefaultPrepDeckPrompts = Prompts{
	User: `You are an elite Executive Interview Coach.
Based on the following candidate profile and target JD, generate a MASTER INTERVIEW PREP DECK.

Candidate Summary: {summary}
Industry: {industry}
Target JD: {target}

Generate exactly 15 high-impact questions categorized into:
- Behavioral (testing leadership, teamwork, conflict)
- Technical (testing specific industry skills and tools)
- Situational (scenario-based challenges)
- Trap (common recruiter tricks to test pressure or honesty)

Each question must have a 'starAnswer' guide and a 'reason' for why this is asked.

Return as JSON array of objects with keys: question, type, starAnswer, reason.`,
}

// DefaultChatPrompts configure the career assistant.
var DefaultChatPrompts = Prompts{
	System: "You are 'Core Assistant', a career AI designed to help users optimize their resumes and prepare for high-stakes interviews. Be professional, concise, and insightful.",
}

// ChatFallbackReply is returned when the model produces no text.
const ChatFallbackReply = "I'm sorry, I couldn't process that request."

// Fallback target used in the prep deck prompt.
const defaultTargetLevel = "Standard Industry Level"

// comparisonLine switches between a targeted comparison and a general benchmark.
func comparisonLine(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return "General industry benchmark analysis."
	}
	return fmt.Sprintf("Compare it against this target Job Description: \"%s\"", target)
}

// BuildAnalyzePrompt fills the analysis template's placeholders. Any other
// text, including literal % signs, is kept as written.
func BuildAnalyzePrompt(template string, input types.AnalyzeInput) string {
	return strings.NewReplacer(
		"{industry}", string(input.Industry),
		"{region}", string(input.Region),
		"{comparison}", comparisonLine(input.TargetDescription),
	).Replace(template)
}

// BuildPrepDeckPrompt fills the prep deck template's placeholders.
func BuildPrepDeckPrompt(template string, input types.PrepDeckInput) string {
	target := strings.TrimSpace(input.TargetDescription)
	if target == "" {
		target = defaultTargetLevel
	}
	return strings.NewReplacer(
		"{summary}", input.ResumeSummary,
		"{industry}", string(input.Industry),
		"{target}", target,
	).Replace(template)
}

func defaultPromptsFor(operation string) Prompts {
	switch operation {
	case config.OperationAnalyze:
		return DefaultAnalyzePrompts
	case config.OperationPrepDeck:
		return DefaultPrepDeckPrompts
	case config.OperationChat:
		return DefaultChatPrompts
	default:
		return Prompts{}
	}
}

// resolvePrompts overlays configured prompts (inline or loaded from file) on the defaults.
func resolvePrompts(operation string, cfg config.PromptConfig) Prompts {
	p := defaultPromptsFor(operation)
	p.System = resolvePrompt(cfg.System, p.System)
	p.User = resolvePrompt(cfg.User, p.User)
	return p
}

func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
