package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"resumeforensics/internal/common"
	appErrors "resumeforensics/internal/errors"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/observability"
	"resumeforensics/internal/session"
	"resumeforensics/internal/types"
	"resumeforensics/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

const chatFallback = "I'm sorry, I couldn't process that request."

// sessionView is what clients see of a session. Gated content only leaves
// through the redacted report.
type sessionView struct {
	Status            session.Status     `json:"status"`
	Phase             string             `json:"phase,omitempty"`
	Error             string             `json:"error,omitempty"`
	Unlocked          bool               `json:"unlocked"`
	Unlocking         bool               `json:"unlocking,omitempty"`
	FileName          string             `json:"fileName,omitempty"`
	Industry          types.Industry     `json:"industry,omitempty"`
	Region            types.Region       `json:"region,omitempty"`
	TargetDescription string             `json:"targetDescription,omitempty"`
	HistoryID         string             `json:"historyId,omitempty"`
	Report            *formatters.Report `json:"report,omitempty"`
}

func viewOf(snap session.Snapshot) sessionView {
	v := sessionView{
		Status:            snap.Status,
		Phase:             snap.Phase,
		Error:             snap.Error,
		Unlocked:          snap.Unlocked,
		Unlocking:         snap.Unlocking,
		FileName:          snap.FileName,
		Industry:          snap.Industry,
		Region:            snap.Region,
		TargetDescription: snap.TargetDescription,
		HistoryID:         snap.HistoryID,
	}
	if snap.Result != nil {
		rep := formatters.BuildReport(snap.Result, snap.Unlocked)
		v.Report = &rep
	}
	return v
}

// userHeader selects the account and session of an API request.
const userHeader = "X-User-Email"

// sessionFor resolves X-User-Email to its session, registering the account on first use.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	email := session.NormalizeEmail(r.Header.Get(userHeader))
	if email == "" {
		writeErrorResponse(w, "Missing user", "X-User-Email header is required", http.StatusBadRequest)
		return nil, "", false
	}
	accounts := s.Runtime.Records.Accounts
	if _, err := accounts.User(r.Context(), email); err != nil {
		if !appErrors.HasCode(err, appErrors.ErrCodeUserNotFound) {
			s.writeAppError(w, err)
			return nil, "", false
		}
		if _, err := accounts.Register(r.Context(), "", email); err != nil {
			s.writeAppError(w, err)
			return nil, "", false
		}
	}
	return s.Sessions.Get(email), email, true
}

// createAnalyzeHandler accepts a multipart upload (field "file") or a JSON body
// with base64 data. With ?wait=true it blocks until the analysis settles.
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumeforensics.api").Start(r.Context(), "api.analyze")
		defer span.End()

		sess, _, ok := s.sessionFor(w, r)
		if !ok {
			return
		}

		up, err := s.readUpload(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("request.media_type", up.MediaType),
			attribute.Int("request.size", len(up.Data)),
			attribute.String("request.industry", string(up.Industry)),
			attribute.String("request.region", string(up.Region)),
		)

		if err := sess.Submit(ctx, up); err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		if r.URL.Query().Get("wait") != "true" {
			writeJSON(w, http.StatusAccepted, viewOf(sess.Snapshot()))
			return
		}

		snap, err := sess.Wait(ctx)
		if err != nil {
			writeErrorResponse(w, "Request cancelled", err.Error(), http.StatusRequestTimeout)
			return
		}
		span.SetAttributes(attribute.String("response.status", string(snap.Status)))
		if snap.Status == session.StatusIdle && snap.Err != nil {
			span.RecordError(snap.Err)
			writeJSON(w, statusFor(snap.Err), viewOf(snap))
			return
		}
		writeJSON(w, http.StatusOK, viewOf(snap))
	}
}

func (s *Server) readUpload(r *http.Request) (session.Upload, error) {
	var req AnalyzeRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return session.Upload{}, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return session.Upload{}, fmt.Errorf("file field is required: %w", err)
		}
		defer func() { _ = file.Close() }()

		if req.Data, err = io.ReadAll(file); err != nil {
			return session.Upload{}, fmt.Errorf("failed to read upload: %w", err)
		}
		req.FileName = header.Filename
		req.MediaType = header.Header.Get("Content-Type")
		req.Industry = r.FormValue("industry")
		req.Region = r.FormValue("region")
		req.TargetDescription = r.FormValue("targetDescription")
	} else if err := parseJSONRequest(r, &req); err != nil {
		return session.Upload{}, err
	}

	if req.MediaType == "" || req.MediaType == "application/octet-stream" {
		req.MediaType = utils.UploadMediaType(req.FileName, req.Data)
	}
	if req.Industry == "" {
		req.Industry = string(types.IndustryTech)
	}
	if req.Region == "" {
		req.Region = string(types.RegionUS)
	}
	target, err := common.ParseAnalysisTarget(req.Industry, req.Region)
	if err != nil {
		return session.Upload{}, err
	}

	return session.Upload{
		Data:              req.Data,
		MediaType:         req.MediaType,
		FileName:          req.FileName,
		Industry:          target.Industry,
		Region:            target.Region,
		TargetDescription: strings.TrimSpace(req.TargetDescription),
	}, nil
}

// reportHandler returns the session state as JSON, or the report rendered
// with ?format=text|markdown|html.
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	view := viewOf(sess.Snapshot())

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, view)
		return
	}
	if view.Report == nil {
		writeErrorResponse(w, "No report", "no analysis result in this session", http.StatusNotFound)
		return
	}

	var (
		body        string
		err         error
		contentType = "text/plain; charset=utf-8"
	)
	switch format {
	case "html":
		body, err = formatters.RenderHTML(*view.Report, formatters.NewDossier(time.Now()))
		contentType = "text/html; charset=utf-8"
	case "text", "markdown":
		body, err = formatters.GlobalRegistry.Format(*view.Report, format)
	default:
		writeErrorResponse(w, "Invalid format", fmt.Sprintf("unsupported format '%s'", format), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, body)
}

func (s *Server) createUnlockHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumeforensics.api").Start(r.Context(), "api.unlock")
		defer span.End()

		sess, _, ok := s.sessionFor(w, r)
		if !ok {
			return
		}

		var req UnlockRequest
		if r.ContentLength > 0 {
			if err := parseJSONRequest(r, &req); err != nil {
				writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
				return
			}
		}
		if req.Method == "" {
			req.Method = string(session.UnlockCredit)
		}
		method, err := session.ParseUnlockMethod(req.Method)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		span.SetAttributes(attribute.String("unlock.method", string(method)))

		outcome, err := sess.Unlock(ctx, method)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}
		span.SetAttributes(attribute.String("unlock.charged", string(outcome.Method)))

		writeJSON(w, http.StatusOK, map[string]any{
			"outcome": outcome,
			"session": viewOf(sess.Snapshot()),
		})
	}
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, viewOf(sess.Snapshot()))
}

// createExportHandler streams the PDF or DOCX artifact. A locked report yields 402.
func (s *Server) createExportHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumeforensics.api").Start(r.Context(), "api.export")
		defer span.End()

		kind := strings.ToLower(r.PathValue("kind"))
		span.SetAttributes(attribute.String("export.kind", kind))

		sess, _, ok := s.sessionFor(w, r)
		if !ok {
			return
		}
		result, err := sess.ExportSource()
		if err != nil {
			s.writeAppError(w, err)
			return
		}

		art, err := s.Runtime.Exporter.Export(ctx, kind, result)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}
		sess.RecordExport(ctx, kind)

		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(art.Data); err != nil {
			s.Logger.LogError(err, "Failed to write export", "kind", kind)
		}
	}
}

func (s *Server) createPrepDeckHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumeforensics.api").Start(r.Context(), "api.prepdeck")
		defer span.End()

		sess, _, ok := s.sessionFor(w, r)
		if !ok {
			return
		}
		if s.Backend.Deck == nil {
			writeErrorResponse(w, "Prep deck unavailable", "no model is configured", http.StatusServiceUnavailable)
			return
		}

		questions, err := sess.PrepDeck(ctx, s.Backend.Deck)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}
		span.SetAttributes(attribute.Int("response.questions", len(questions)))
		writeJSON(w, http.StatusOK, types.PrepDeck{Questions: questions})
	}
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErrorResponse(w, "Missing message", "message field is required", http.StatusBadRequest)
		return
	}
	if s.Backend.Assistant == nil {
		writeErrorResponse(w, "Chat unavailable", chatFallback, http.StatusServiceUnavailable)
		return
	}

	reply, err := s.Backend.Assistant.Chat(r.Context(), types.ChatInput{Message: req.Message, History: req.History})
	if err != nil {
		s.Logger.LogError(err, "Chat request failed")
		writeErrorResponse(w, "Chat failed", chatFallback, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, types.ChatOutput{Reply: reply})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	email := session.NormalizeEmail(r.Header.Get(userHeader))
	if email == "" {
		writeErrorResponse(w, "Missing user", "X-User-Email header is required", http.StatusBadRequest)
		return
	}
	entries, err := s.Runtime.Records.History.List(r.Context(), email)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatters.SummarizeHistory(entries))
}

func (s *Server) plansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Runtime.Records.Accounts.Plans(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// statusFor maps an error's code to an HTTP status.
func statusFor(err error) int {
	appErr, ok := appErrors.AsAppError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case appErrors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case appErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case appErrors.ErrCodeInvalidRequest, appErrors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case appErrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case appErrors.ErrCodeNotFound, appErrors.ErrCodeUserNotFound:
		return http.StatusNotFound
	case appErrors.ErrCodeReportLocked, appErrors.ErrCodeInsufficientCredits, appErrors.ErrCodePaymentDeclined:
		return http.StatusPaymentRequired
	case appErrors.ErrCodeAnalysisInFlight, appErrors.ErrCodeInvalidTransition:
		return http.StatusConflict
	case appErrors.ErrCodeAITimeout, appErrors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case appErrors.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable
	case appErrors.ErrCodeAIServiceFailed, appErrors.ErrCodeAIResponseParseFailed, appErrors.ErrCodeSchemaViolation:
		return http.StatusBadGateway
	}
	if appErr.Type == appErrors.ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeAppError writes err with its mapped status. Model and format failures
// are collapsed to the user-facing message.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if appErr, ok := appErrors.AsAppError(err); ok {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		switch appErr.Type {
		case appErrors.ErrorTypeAI, appErrors.ErrorTypeNetwork:
			resp.Message = appErrors.UserMessage(err)
		}
		if appErr.Code == appErrors.ErrCodeUnsupportedFormat {
			resp.Message = appErrors.UserMessage(err)
		}
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "API request failed", "status", status)
	}
	writeJSON(w, status, resp)
}
