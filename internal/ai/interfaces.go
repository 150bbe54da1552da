package ai

import (
	"context"

	"resumeforensics/internal/types"

	"google.golang.org/genai"
)

// AIProvider interface for different AI implementations
// All methods return token usage information - callers can ignore it if not needed
type AIProvider interface {
	AnalyzeResume(ctx context.Context, input types.AnalyzeInput) (*types.AnalysisResult, *TokenUsage, error)
	GeneratePrepDeck(ctx context.Context, input types.PrepDeckInput) ([]types.InterviewQuestion, *TokenUsage, error)
	Chat(ctx context.Context, input types.ChatInput) (types.ChatOutput, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// modelsAPI is the subset of genai's Models service the provider calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}
