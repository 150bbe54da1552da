package ai

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/schemas"
	"resumeforensics/internal/testutil"
	"resumeforensics/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeModels records GenerateContent calls and replays canned responses.
type fakeModels struct {
	mu    sync.Mutex
	calls []generateCall
	text  string
	err   error
	model *genai.Model
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: cfg})
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: f.text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 80,
			TotalTokenCount:      200,
		},
	}, nil
}

func (f *fakeModels) Get(_ context.Context, model string, _ *genai.GetModelConfig) (*genai.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.model != nil {
		return f.model, nil
	}
	return &genai.Model{Name: model, DisplayName: "Gemini Test", Version: "001"}, nil
}

func (f *fakeModels) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testOperationConfig(maxRetries int) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            config.DefaultModel,
		Timeout:          timePtr(5 * time.Second),
		APIKey:           "test-key",
		MaxRetries:       intPtr(maxRetries),
		Temperature:      float32Ptr(0.2),
		UseSystemPrompts: boolPtr(true),
	}
}

func pdfInput() types.AnalyzeInput {
	return types.AnalyzeInput{
		Document:  []byte("%PDF-1.4 fake"),
		MediaType: "application/pdf",
		Industry:  types.IndustryTech,
		Region:    types.RegionUS,
	}
}

func TestAnalyzeResume_SendsInlineDocumentAndSchema(t *testing.T) {
	models := &fakeModels{text: testutil.AnalysisJSON}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationAnalyze, nil)

	result, usage, err := provider.AnalyzeResume(context.Background(), pdfInput())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, types.VerdictBorderline, result.Verdict.Status)
	assert.Equal(t, int64(200), usage.TotalTokens)

	require.Equal(t, 1, models.callCount())
	call := models.calls[0]
	assert.Equal(t, config.DefaultModel, call.model)

	require.Len(t, call.contents, 1)
	parts := call.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "application/pdf", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "Analyze this resume as a Senior Hiring Partner at a Tech / Data firm in US.")
	assert.Contains(t, parts[1].Text, "General industry benchmark analysis.")
	assert.Contains(t, parts[1].Text, "MANDATORY REQUIREMENTS:")

	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	require.NotNil(t, call.config.ResponseSchema)
	assert.Contains(t, call.config.ResponseSchema.Required, "verdict")
	assert.Nil(t, call.config.SystemInstruction)
}

func TestAnalyzeResume_TargetDescriptionInPrompt(t *testing.T) {
	models := &fakeModels{text: testutil.AnalysisJSON}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationAnalyze, nil)

	input := pdfInput()
	input.TargetDescription = "Staff Data Engineer, payments"
	_, _, err := provider.AnalyzeResume(context.Background(), input)
	require.NoError(t, err)

	prompt := models.calls[0].contents[0].Parts[1].Text
	assert.Contains(t, prompt, `Compare it against this target Job Description: "Staff Data Engineer, payments"`)
	assert.NotContains(t, prompt, "General industry benchmark analysis.")
}

func TestAnalyzeResume_UnsupportedTypeMakesNoCall(t *testing.T) {
	models := &fakeModels{text: testutil.AnalysisJSON}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationAnalyze, nil)

	input := pdfInput()
	input.MediaType = "image/png"
	result, _, err := provider.AnalyzeResume(context.Background(), input)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))
	assert.Equal(t, 0, models.callCount())
}

func TestAnalyzeResume_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		code string
	}{
		{name: "not json", text: "I cannot help with that.", code: errors.ErrCodeAIResponseParseFailed},
		{name: "empty text", text: "", code: errors.ErrCodeAIResponseParseFailed},
		{name: "missing verdict", text: strings.Replace(testutil.AnalysisJSON, `"verdict":`, `"verdictX":`, 1), code: errors.ErrCodeSchemaViolation},
		{name: "score out of range", text: testutil.AnalysisJSONWith(`"overallScore": 72`, `"overallScore": 720`), code: errors.ErrCodeSchemaViolation},
		{name: "transport failure", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, code: errors.ErrCodeAIServiceFailed},
		{name: "deadline", err: context.DeadlineExceeded, code: errors.ErrCodeAITimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{text: tt.text, err: tt.err}
			provider := newGeminiProvider(models, testOperationConfig(0), config.OperationAnalyze, nil)

			result, _, err := provider.AnalyzeResume(context.Background(), pdfInput())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, errors.MessageAnalysisFailed, errors.UserMessage(err))
			// No automatic retry for analysis.
			assert.Equal(t, 1, models.callCount())
		})
	}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	models := &fakeModels{err: &googleapi.Error{Code: http.StatusTooManyRequests}}
	provider := newGeminiProvider(models, testOperationConfig(1), config.OperationChat, nil)

	_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, 2, models.callCount())
}

func TestExecuteWithRetry_StopsOnPermanentErrors(t *testing.T) {
	models := &fakeModels{err: &googleapi.Error{Code: http.StatusBadRequest}}
	provider := newGeminiProvider(models, testOperationConfig(3), config.OperationChat, nil)

	_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, 1, models.callCount())
}

func TestGeneratePrepDeck(t *testing.T) {
	models := &fakeModels{text: testutil.PrepDeckJSON(schemas.PrepDeckSize)}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationPrepDeck, nil)

	questions, _, err := provider.GeneratePrepDeck(context.Background(), types.PrepDeckInput{
		ResumeSummary: "Data engineer, 7 years",
		Industry:      types.IndustryTech,
	})
	require.NoError(t, err)
	assert.Len(t, questions, schemas.PrepDeckSize)

	call := models.calls[0]
	prompt := call.contents[0].Parts[0].Text
	assert.Contains(t, prompt, "You are an elite Executive Interview Coach.")
	assert.Contains(t, prompt, "Target JD: Standard Industry Level")
	assert.Contains(t, prompt, "Industry: Tech / Data")
	require.NotNil(t, call.config.ResponseSchema.MaxItems)
	assert.Equal(t, int64(schemas.PrepDeckSize), *call.config.ResponseSchema.MaxItems)
}

func TestGeneratePrepDeck_WrongSize(t *testing.T) {
	models := &fakeModels{text: testutil.PrepDeckJSON(10)}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationPrepDeck, nil)

	_, _, err := provider.GeneratePrepDeck(context.Background(), types.PrepDeckInput{Industry: types.IndustryAudit})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchemaViolation))
}

func TestChat(t *testing.T) {
	models := &fakeModels{text: "Lead with the outcome."}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationChat, nil)

	out, _, err := provider.Chat(context.Background(), types.ChatInput{
		Message: "How do I open my summary?",
		History: []types.ChatTurn{
			{Role: types.ChatRoleUser, Text: "Hi"},
			{Role: types.ChatRoleModel, Text: "Hello, how can I help?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lead with the outcome.", out.Reply)

	call := models.calls[0]
	require.Len(t, call.contents, 3)
	assert.Equal(t, genai.RoleUser, call.contents[0].Role)
	assert.Equal(t, genai.RoleModel, call.contents[1].Role)
	assert.Equal(t, "How do I open my summary?", call.contents[2].Parts[0].Text)
	require.NotNil(t, call.config.SystemInstruction)
	assert.Equal(t, DefaultChatPrompts.System, call.config.SystemInstruction.Parts[0].Text)
}

func TestChat_EmptyReplyFallsBack(t *testing.T) {
	models := &fakeModels{text: "  "}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationChat, nil)

	out, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "anything"})
	require.NoError(t, err)
	assert.Equal(t, ChatFallbackReply, out.Reply)
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	models := &fakeModels{}
	provider := newGeminiProvider(models, testOperationConfig(0), config.OperationChat, nil)

	_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: " "})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Equal(t, 0, models.callCount())
}

func TestConfiguredPromptOverridesDefault(t *testing.T) {
	cfg := testOperationConfig(0)
	cfg.Prompts.System = "Be terse."
	models := &fakeModels{text: "ok"}
	provider := newGeminiProvider(models, cfg, config.OperationChat, nil)

	_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Be terse.", models.calls[0].config.SystemInstruction.Parts[0].Text)
}

func TestConfiguredAnalyzePromptKeepsPercentSigns(t *testing.T) {
	cfg := testOperationConfig(0)
	cfg.Prompts.User = "Rank against the top 10% of {industry} hires in {region}. {comparison} Score 0-100%."
	models := &fakeModels{text: testutil.AnalysisJSON}
	provider := newGeminiProvider(models, cfg, config.OperationAnalyze, nil)

	_, _, err := provider.AnalyzeResume(context.Background(), pdfInput())
	require.NoError(t, err)
	prompt := models.calls[0].contents[0].Parts[1].Text
	assert.Equal(t, "Rank against the top 10% of Tech / Data hires in US. General industry benchmark analysis. Score 0-100%.", prompt)
	assert.NotContains(t, prompt, "%!")
}

func TestBuildPrepDeckPrompt(t *testing.T) {
	got := BuildPrepDeckPrompt("{summary} | {industry} | {target} | 50%", types.PrepDeckInput{
		ResumeSummary: "Data engineer",
		Industry:      types.IndustryTech,
	})
	assert.Equal(t, "Data engineer | Tech / Data | Standard Industry Level | 50%", got)
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func recordingProvider(t *testing.T, text string) (*GeminiProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	provider := newGeminiProvider(&fakeModels{text: text}, testOperationConfig(0), config.OperationAnalyze, nil)
	provider.tracer = tp.Tracer("test")
	return provider, recorder
}

func TestAnalyzeResume_ResultAttributesOnCallSpan(t *testing.T) {
	provider, recorder := recordingProvider(t, testutil.AnalysisJSON)

	_, _, err := provider.AnalyzeResume(context.Background(), pdfInput())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gemini.analyze_resume", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, 72.0, attrs["result.overall_score"].AsFloat64())
	assert.Equal(t, string(types.VerdictBorderline), attrs["result.verdict"].AsString())
	assert.True(t, attrs["success"].AsBool())
}

func TestAnalyzeResume_ParseFailureRecordedOnCallSpan(t *testing.T) {
	provider, recorder := recordingProvider(t, "I cannot help with that.")

	_, _, err := provider.AnalyzeResume(context.Background(), pdfInput())
	require.True(t, errors.HasCode(err, errors.ErrCodeAIResponseParseFailed))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.False(t, attrs["success"].AsBool())
	_, hasScore := attrs["result.overall_score"]
	assert.False(t, hasScore)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestGetModelInfo(t *testing.T) {
	provider := newGeminiProvider(&fakeModels{}, testOperationConfig(0), config.OperationAnalyze, nil)
	info := provider.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "Gemini Test", info.DisplayName)

	failing := newGeminiProvider(&fakeModels{err: &googleapi.Error{Code: http.StatusNotFound}}, testOperationConfig(0), config.OperationAnalyze, nil)
	info = failing.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.NotEmpty(t, info.Error)
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	cfg := testOperationConfig(0)
	cfg.APIKey = ""
	_, err := NewGeminiProvider(cfg, config.OperationAnalyze, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyCallError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    string
		errType errors.ErrorType
	}{
		{"deadline", context.DeadlineExceeded, errors.ErrCodeAITimeout, errors.ErrorTypeAI},
		{"network timeout", &url.Error{Op: "Post", URL: "https://generativelanguage.googleapis.com", Err: timeoutErr{}}, errors.ErrCodeNetworkTimeout, errors.ErrorTypeNetwork},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, errors.ErrCodeAIServiceFailed, errors.ErrorTypeAI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyCallError(config.OperationAnalyze, tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.errType, got.Type)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}
