package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"resumeforensics/internal/ai"
	"resumeforensics/internal/common"
	"resumeforensics/internal/config"
	"resumeforensics/internal/encoder"
	appErrors "resumeforensics/internal/errors"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/observability"
	"resumeforensics/internal/testutil"
	"resumeforensics/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser   = "jane@example.com"
	resumeText = "Jane Q. Doe\nData Engineer\nResponsible for month end close automation\n"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ types.AnalyzeInput, onPhase func(string)) (*types.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return testutil.AnalysisResult(), nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeck struct{}

func (fakeDeck) PrepDeck(context.Context, types.PrepDeckInput) ([]types.InterviewQuestion, error) {
	return []types.InterviewQuestion{{Question: "Walk me through the close automation", Type: "Behavioral"}}, nil
}

type fakeAssistant struct {
	err error
}

func (f fakeAssistant) Chat(_ context.Context, input types.ChatInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "You asked: " + input.Message, nil
}

type fakeHealth struct {
	available bool
}

func (f fakeHealth) ModelInfo(context.Context) map[string]*ai.ModelInfo {
	return map[string]*ai.ModelInfo{
		config.OperationAnalyze: {Name: "gemini-test", Available: f.available},
	}
}

func (fakeHealth) CircuitBreakerStats() map[string]any {
	return map[string]any{config.OperationAnalyze: map[string]any{"enabled": false}}
}

type testServer struct {
	srv      *Server
	handler  http.Handler
	analyzer *fakeAnalyzer
}

func newTestServer(t *testing.T, mutate func(*config.Config, *ServerConfig)) *testServer {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{MaxFileSize: 1 << 20},
		Storage: config.StorageConfig{Driver: "memory"},
		Session: config.SessionConfig{PhaseInterval: 5 * time.Millisecond, HistoryLimit: 10},
	}
	serverCfg := ServerConfig{Version: "test", MaxRequestSize: cfg.App.MaxFileSize}
	if mutate != nil {
		mutate(cfg, &serverCfg)
	}

	logger := appErrors.NewLogger(slog.LevelError)
	rt, err := common.NewRuntime(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	analyzer := &fakeAnalyzer{}
	srv := NewServer(rt, Backend{
		Analyzer:  analyzer,
		Deck:      fakeDeck{},
		Assistant: fakeAssistant{},
		Health:    fakeHealth{available: true},
	}, serverCfg)
	t.Cleanup(srv.cleanupRateLimiter)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{}, cfg)
	require.NoError(t, err)

	return &testServer{srv: srv, handler: srv.Handler(om), analyzer: analyzer}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-Email", testUser)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func textUpload() AnalyzeRequest {
	return AnalyzeRequest{
		FileName:  "resume.txt",
		MediaType: encoder.MediaTypeText,
		Data:      []byte(resumeText),
		Industry:  "tech",
		Region:    "US",
	}
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var view sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestAnalyzeUnlockExportFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze?wait=true", textUpload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, "result_ready", string(view.Status))
	assert.False(t, view.Unlocked)
	require.NotNil(t, view.Report)
	assert.NotEmpty(t, view.Report.Locked)
	assert.NotEmpty(t, view.HistoryID)
	assert.NotContains(t, rec.Body.String(), testutil.GatedIdealSummary)
	assert.NotContains(t, rec.Body.String(), testutil.GatedRewrite)

	rec = ts.do(t, http.MethodGet, "/api/v1/export/docx", nil)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), appErrors.ErrCodeReportLocked)

	// New accounts have no credits, so a credit unlock goes through payment.
	rec = ts.do(t, http.MethodPost, "/api/v1/unlock", UnlockRequest{Method: "credit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"method":"payment"`)
	assert.Contains(t, rec.Body.String(), testutil.GatedIdealSummary)

	rec = ts.do(t, http.MethodGet, "/api/v1/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeView(t, rec).Unlocked)

	rec = ts.do(t, http.MethodGet, "/api/v1/export/docx", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, encoder.MediaTypeDOCX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "_ATS_Optimized.docx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = ts.do(t, http.MethodPost, "/api/v1/prepdeck", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Walk me through the close automation")

	rec = ts.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []formatters.HistorySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Unlocked)
	assert.Equal(t, view.HistoryID, entries[0].ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, "idle", string(view.Status))
	assert.Nil(t, view.Report)

	assert.Equal(t, 1, ts.analyzer.callCount())
}

func TestHistory_LockedEntryOmitsGatedContent(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/analyze?wait=true", textUpload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, decodeView(t, rec).Unlocked)

	rec = ts.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, testutil.GatedIdealSummary)
	assert.NotContains(t, body, testutil.GatedRectification)
	assert.NotContains(t, body, testutil.GatedCritique)
	assert.NotContains(t, body, "idealResumeContent")

	var entries []formatters.HistorySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Unlocked)
	assert.Equal(t, formatters.BadgeBorderline, entries[0].Badge)
	assert.Equal(t, 72.0, entries[0].OverallScore)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAnalyze_UnsupportedFormatMakesNoModelCall(t *testing.T) {
	ts := newTestServer(t, nil)

	up := textUpload()
	up.FileName = "resume.png"
	up.MediaType = "image/png"
	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", up)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appErrors.ErrCodeUnsupportedFormat, resp.Code)
	assert.Equal(t, appErrors.MessageUnsupportedFormat, resp.Message)
	assert.Equal(t, 0, ts.analyzer.callCount())
}

func TestAnalyze_Multipart(t *testing.T) {
	ts := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "resume.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(resumeText))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("industry", "finance"))
	require.NoError(t, mw.WriteField("region", "UK"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?wait=true", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Email", testUser)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, "result_ready", string(view.Status))
	assert.Equal(t, types.RegionUK, view.Region)
	assert.Equal(t, "resume.txt", view.FileName)
}

func TestReport_HTMLOmitsGatedContent(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/analyze?wait=true", textUpload())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/report?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "BORDERLINE")
	assert.NotContains(t, rec.Body.String(), testutil.GatedObjection)

	rec = ts.do(t, http.MethodGet, "/api/v1/report?format=rtf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport_TextWithoutResult(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/report?format=text", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSession_RequiresUserHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.APIKeys = []string{"secret-key-123456"}
	})

	rec := ts.do(t, http.MethodGet, "/api/v1/plans", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, header := range []struct{ name, value string }{
		{"X-API-Key", "secret-key-123456"},
		{"Authorization", "Bearer secret-key-123456"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
		req.Header.Set(header.name, header.value)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, header.name)
	}

	// Health stays open.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	rec := ts.do(t, http.MethodGet, "/api/v1/plans", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/plans", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	stats := ts.srv.RateLimiter.GetStats()
	assert.Equal(t, 1, stats["active_limiters"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	ts.srv.Backend.Health = fakeHealth{available: false}
	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/chat", ChatRequest{Message: "How long should a resume be?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var out types.ChatOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "You asked: How long should a resume be?", out.Reply)

	rec = ts.do(t, http.MethodPost, "/api/v1/chat", ChatRequest{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.srv.Backend.Assistant = fakeAssistant{err: appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "boom", nil)}
	rec = ts.do(t, http.MethodPost, "/api/v1/chat", ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), chatFallback)
}

func TestPlans(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plans []types.PricingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	assert.NotEmpty(t, plans)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidationError(appErrors.ErrCodeUnsupportedFormat, "x", nil), http.StatusUnsupportedMediaType},
		{appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge, "x", nil), http.StatusRequestEntityTooLarge},
		{appErrors.NewStateError(appErrors.ErrCodeReportLocked, "x", nil), http.StatusPaymentRequired},
		{appErrors.NewStateError(appErrors.ErrCodeAnalysisInFlight, "x", nil), http.StatusConflict},
		{appErrors.NewAIError(appErrors.ErrCodeAITimeout, "x", nil), http.StatusGatewayTimeout},
		{appErrors.NewAIError(appErrors.ErrCodeCircuitOpen, "x", nil), http.StatusServiceUnavailable},
		{appErrors.NewAIError(appErrors.ErrCodeSchemaViolation, "x", nil), http.StatusBadGateway},
		{appErrors.NewValidationError(appErrors.ErrCodeNotFound, "x", nil), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.err.Error(), " ", "_"), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestGetRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.9")

	assert.Equal(t, "ip:203.0.113.9", getRateLimitKey(req, false, true))
	assert.Equal(t, "", getRateLimitKey(req, true, false))

	req.Header.Set("X-User-Email", " Ana@Example.com ")
	assert.Equal(t, "user:ana@example.com|203.0.113.9", getRateLimitKey(req, false, true))

	req.Header.Set("X-API-Key", "abc")
	assert.Equal(t, "api:abc", getRateLimitKey(req, true, true))
}
