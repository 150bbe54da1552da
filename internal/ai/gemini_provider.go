package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"resumeforensics/internal/config"
	"resumeforensics/internal/encoder"
	appErrors "resumeforensics/internal/errors"
	"resumeforensics/internal/schemas"
	"resumeforensics/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	models          modelsAPI
	config          *config.OperationAIConfig
	operation       string
	prompts         Prompts
	generateBreaker *breaker[*genai.GenerateContentResponse]
	modelBreaker    *breaker[*genai.Model]
	tracer          trace.Tracer
	logger          *appErrors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured", nil).
			WithContext("operation", operationType)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client.Models, cfg, operationType, logger), nil
}

func newGeminiProvider(models modelsAPI, cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:          models,
		config:          cfg,
		operation:       operationType,
		prompts:         resolvePrompts(operationType, cfg.Prompts),
		generateBreaker: newGenerateBreaker(operationType, cfg, logger),
		modelBreaker:    newModelBreaker(operationType, cfg, logger),
		tracer:          otel.Tracer("resumeforensics.ai.gemini"),
		logger:          logger,
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.run(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.debug("Model availability check successful",
		"model", g.config.Model,
		"operation", g.operation,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

const modelCheckTimeout = 10 * time.Second

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter, capped at 30 seconds
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			backoff := min(baseDelay+time.Duration(jitterBig.Int64()), 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			g.debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	if g.logger != nil {
		g.logger.LogError(lastErr, "AI operation failed",
			"operation", operation,
			"max_retries", maxRetries)
	}

	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors (timeouts, connection refused) are transient
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == http.StatusTooManyRequests || genaiErr.Code >= http.StatusInternalServerError
	}

	return false
}

// classifyCallError maps a failed generation call onto the error taxonomy.
func classifyCallError(operation string, err error) *appErrors.AppError {
	switch {
	case isCircuitOpenError(err):
		return appErrors.NewAIError(appErrors.ErrCodeCircuitOpen,
			"AI service temporarily unavailable for "+operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.NewAIError(appErrors.ErrCodeAITimeout,
			"AI request timed out for "+operation, err)
	case isNetTimeout(err):
		return appErrors.NewNetworkError(appErrors.ErrCodeNetworkTimeout,
			"Network timeout reaching the model for "+operation, err)
	default:
		return appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+operation, err)
	}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyParseError separates unparseable text from well-formed JSON that breaks the schema.
func classifyParseError(operation string, raw string, err error) *appErrors.AppError {
	var loadErr *schemas.SchemaLoadError
	if errors.As(err, &loadErr) {
		return appErrors.NewInternalError(appErrors.ErrCodeSchemaViolation,
			"Response schema could not be loaded", err)
	}
	if !json.Valid([]byte(strings.TrimSpace(raw))) {
		return appErrors.NewAIError(appErrors.ErrCodeAIResponseParseFailed,
			"Failed to parse AI response for "+operation, err).
			WithContext("response_length", len(raw))
	}
	return appErrors.NewAIError(appErrors.ErrCodeSchemaViolation,
		"AI response does not match the "+operation+" schema", err)
}

// responseDecoder validates raw response text and returns attributes describing
// the decoded value. It runs inside the call's span.
type responseDecoder func(raw string) ([]attribute.KeyValue, error)

// generate runs one traced, circuit-broken model call and returns the raw response
// text. A non-nil decode is applied before the span ends; its error is returned as is.
func (g *GeminiProvider) generate(
	ctx context.Context,
	operationName string,
	contents []*genai.Content,
	genaiConfig *genai.GenerateContentConfig,
	decode responseDecoder,
	spanAttributes ...attribute.KeyValue,
) (string, *TokenUsage, error) {
	ctx, span := g.tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && g.prompts.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(g.prompts.System, genai.RoleUser)
	}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}

	callCtx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.generateBreaker.run(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(callCtx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(callCtx, g.config.Model, contents, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, classifyCallError(operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	raw := responseText(result)
	if decode != nil {
		attrs, err := decode(raw)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("success", false))
			return "", tokenUsage, err
		}
		span.SetAttributes(attrs...)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return raw, tokenUsage, nil
}

// AnalyzeResume sends the document inline with the analysis instruction and validates
// the structured response. Unsupported media types fail before any request is made.
func (g *GeminiProvider) AnalyzeResume(ctx context.Context, input types.AnalyzeInput) (*types.AnalysisResult, *TokenUsage, error) {
	if err := encoder.CheckMediaType(input.MediaType); err != nil {
		return nil, nil, err
	}

	prompt := BuildAnalyzePrompt(g.prompts.User, input)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(input.Document, encoder.Normalize(input.MediaType)),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisResponseSchema(),
	}

	var result *types.AnalysisResult
	decode := func(raw string) ([]attribute.KeyValue, error) {
		parsed, err := schemas.ParseAnalysisResult([]byte(raw))
		if err != nil {
			return nil, classifyParseError("analyze_resume", raw, err)
		}
		result = parsed
		return []attribute.KeyValue{
			attribute.Float64("result.overall_score", parsed.OverallScore),
			attribute.String("result.verdict", string(parsed.Verdict.Status)),
		}, nil
	}

	_, tokenUsage, err := g.generate(ctx, "analyze_resume", contents, genaiConfig, decode,
		attribute.String("input.media_type", input.MediaType),
		attribute.Int("input.document_bytes", len(input.Document)),
		attribute.String("input.industry", string(input.Industry)),
		attribute.String("input.region", string(input.Region)),
		attribute.Bool("input.has_target", strings.TrimSpace(input.TargetDescription) != ""),
	)
	if err != nil {
		return nil, tokenUsage, err
	}
	return result, tokenUsage, nil
}

// GeneratePrepDeck asks for exactly PrepDeckSize interview questions.
func (g *GeminiProvider) GeneratePrepDeck(ctx context.Context, input types.PrepDeckInput) ([]types.InterviewQuestion, *TokenUsage, error) {
	prompt := BuildPrepDeckPrompt(g.prompts.User, input)
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   prepDeckResponseSchema(),
	}

	var questions []types.InterviewQuestion
	decode := func(raw string) ([]attribute.KeyValue, error) {
		parsed, err := schemas.ParsePrepDeck([]byte(raw))
		if err != nil {
			return nil, classifyParseError("prep_deck", raw, err)
		}
		questions = parsed
		return []attribute.KeyValue{attribute.Int("result.questions", len(parsed))}, nil
	}

	_, tokenUsage, err := g.generate(ctx, "prep_deck", genai.Text(prompt), genaiConfig, decode,
		attribute.String("input.industry", string(input.Industry)),
		attribute.Int("input.summary_length", len(input.ResumeSummary)),
	)
	if err != nil {
		return nil, tokenUsage, err
	}
	return questions, tokenUsage, nil
}

// Chat sends the conversation so far plus the new message to the career assistant.
func (g *GeminiProvider) Chat(ctx context.Context, input types.ChatInput) (types.ChatOutput, *TokenUsage, error) {
	if strings.TrimSpace(input.Message) == "" {
		return types.ChatOutput{}, nil, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"chat message is empty", nil)
	}

	contents := make([]*genai.Content, 0, len(input.History)+1)
	for _, turn := range input.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == types.ChatRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(input.Message, genai.RoleUser))

	raw, tokenUsage, err := g.generate(ctx, "chat", contents, &genai.GenerateContentConfig{}, nil,
		attribute.Int("input.history_turns", len(input.History)),
	)
	if err != nil {
		return types.ChatOutput{}, nil, err
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		reply = ChatFallbackReply
	}
	return types.ChatOutput{Reply: reply}, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.generateBreaker.stats(),
		"model_operations": g.modelBreaker.stats(),
		"overall_healthy":  g.generateBreaker.healthy() && g.modelBreaker.healthy(),
	}
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	// The genai client holds no resources in single-shot usage
	return nil
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func (g *GeminiProvider) info(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *GeminiProvider) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func (g *GeminiProvider) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
