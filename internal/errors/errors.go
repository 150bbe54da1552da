package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeState      ErrorType = "state"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// newAppError is an unexported helper to create AppError instances
func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewStateError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeState, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{logger: logger}
}

// LogError logs an application error with appropriate level and context.
// All Logger methods are no-ops on a nil receiver.
func (l *Logger) LogError(err error, message string, args ...any) {
	if l == nil {
		return
	}
	if appErr, ok := err.(*AppError); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}

		// Add context if available
		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		// Add additional args
		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
	} else {
		// Regular error
		logArgs := append([]any{"error", err.Error()}, args...)
		l.logger.Error(message, logArgs...)
	}
}

func (l *Logger) Info(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Warn(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound          = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable       = "FILE_NOT_READABLE"
	ErrCodeFileTooLarge          = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat         = "INVALID_FORMAT"
	ErrCodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	ErrCodeAIServiceFailed       = "AI_SERVICE_FAILED"
	ErrCodeAITimeout             = "AI_TIMEOUT"
	ErrCodeAIResponseParseFailed = "AI_RESPONSE_PARSE_FAILED"
	ErrCodeSchemaViolation       = "SCHEMA_VIOLATION"
	ErrCodeCircuitOpen           = "CIRCUIT_OPEN"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeMissingAPIKey         = "MISSING_API_KEY"
	ErrCodeNetworkTimeout        = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig         = "INVALID_CONFIG"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeAnalysisInFlight      = "ANALYSIS_IN_FLIGHT"
	ErrCodeInsufficientCredits   = "INSUFFICIENT_CREDITS"
	ErrCodeReportLocked          = "REPORT_LOCKED"
	ErrCodePaymentDeclined       = "PAYMENT_DECLINED"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeStorageFailed         = "STORAGE_FAILED"
	ErrCodeExportFailed          = "EXPORT_FAILED"
	ErrCodeInternal              = "INTERNAL"
)

// User-facing messages shown at the UI boundary.
const (
	MessageUnsupportedFormat = "File format not supported. Please use PDF, DOCX, or Text."
	MessageAnalysisFailed    = "Analysis encountered an error. Please try again."
)

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// UserMessage collapses an analysis failure into the single string shown to users.
// Only an unsupported format gets its own wording.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if HasCode(err, ErrCodeUnsupportedFormat) {
		return MessageUnsupportedFormat
	}
	return MessageAnalysisFailed
}
