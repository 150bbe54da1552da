// Package session drives one user's analysis from upload to unlocked report.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resumeforensics/internal/encoder"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/observability"
	"resumeforensics/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Status is the session's position in its lifecycle.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusReading     Status = "reading"
	StatusAnalyzing   Status = "analyzing"
	StatusResultReady Status = "result_ready"
	StatusUnlocked    Status = "unlocked"
)

func (s Status) inFlight() bool {
	return s == StatusReading || s == StatusAnalyzing
}

// Analyzer produces one analysis result for an encoded document.
type Analyzer interface {
	Analyze(ctx context.Context, input types.AnalyzeInput, onPhase func(string)) (*types.AnalysisResult, error)
}

// DeckGenerator produces the full interview prep deck.
type DeckGenerator interface {
	PrepDeck(ctx context.Context, input types.PrepDeckInput) ([]types.InterviewQuestion, error)
}

// DocumentEncoder validates and encodes an upload.
type DocumentEncoder interface {
	Encode(ctx context.Context, data []byte, declared, fileName string) (*encoder.Document, error)
}

// EventRecorder receives business events. *observability.ObservabilityManager satisfies it.
type EventRecorder interface {
	RecordEvent(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue)
}

// Upload is one resume submission.
type Upload struct {
	Data              []byte
	MediaType         string
	FileName          string
	Industry          types.Industry
	Region            types.Region
	TargetDescription string
}

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	Status            Status                `json:"status"`
	Phase             string                `json:"phase,omitempty"`
	Error             string                `json:"error,omitempty"`
	Err               error                 `json:"-"`
	Result            *types.AnalysisResult `json:"result,omitempty"`
	Unlocked          bool                  `json:"unlocked"`
	Unlocking         bool                  `json:"unlocking,omitempty"`
	UserEmail         string                `json:"userEmail,omitempty"`
	FileName          string                `json:"fileName,omitempty"`
	Industry          types.Industry        `json:"industry,omitempty"`
	Region            types.Region          `json:"region,omitempty"`
	TargetDescription string                `json:"targetDescription,omitempty"`
	HistoryID         string                `json:"historyId,omitempty"`
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	UserEmail       string
	PhaseInterval   time.Duration
	AnalysisTimeout time.Duration
	Granter         EntitlementGranter
	Records         *Records
	Recorder        EventRecorder
	Logger          *errors.Logger
}

// settleSignal is closed exactly once when a generation settles or is superseded.
type settleSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newSettleSignal() *settleSignal {
	return &settleSignal{ch: make(chan struct{})}
}

func (s *settleSignal) fire() {
	s.once.Do(func() { close(s.ch) })
}

// Session is the per-user orchestration state machine:
// Idle -> Reading -> Analyzing -> ResultReady -> Unlocked, and any state -> Idle on Reset.
type Session struct {
	mu sync.Mutex

	analyzer Analyzer
	enc      DocumentEncoder
	granter  EntitlementGranter
	records  *Records
	recorder EventRecorder
	logger   *errors.Logger

	phaseInterval time.Duration
	timeout       time.Duration

	userEmail  string
	status     Status
	phase      string
	errMsg     string
	lastErr    error
	result     *types.AnalysisResult
	upload     Upload
	historyID  string
	unlocking  bool
	generation uint64
	reporter   *PhaseReporter
	settled    *settleSignal
	lastActive time.Time
}

// New creates an idle session.
func New(analyzer Analyzer, enc DocumentEncoder, opts Options) *Session {
	granter := opts.Granter
	if granter == nil {
		granter = &SimulatedPayment{GatewayDelay: 800 * time.Millisecond, ProcessingDelay: 1500 * time.Millisecond, Price: "$9.99"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = errors.NewLogger(slog.LevelInfo)
	}
	return &Session{
		analyzer:      analyzer,
		enc:           enc,
		granter:       granter,
		records:       opts.Records,
		recorder:      opts.Recorder,
		logger:        logger,
		phaseInterval: opts.PhaseInterval,
		timeout:       opts.AnalysisTimeout,
		userEmail:     NormalizeEmail(opts.UserEmail),
		status:        StatusIdle,
		lastActive:    time.Now(),
	}
}

// SetUser switches the account credited with XP and charged for unlocks.
func (s *Session) SetUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userEmail = NormalizeEmail(email)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Status:            s.status,
		Phase:             s.phase,
		Error:             s.errMsg,
		Err:               s.lastErr,
		Result:            s.result,
		Unlocked:          s.status == StatusUnlocked,
		Unlocking:         s.unlocking,
		UserEmail:         s.userEmail,
		FileName:          s.upload.FileName,
		Industry:          s.upload.Industry,
		Region:            s.upload.Region,
		TargetDescription: s.upload.TargetDescription,
		HistoryID:         s.historyID,
	}
}

// LastActive is the time of the last state-changing call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Busy reports whether an analysis or unlock is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.inFlight() || s.unlocking
}

// DismissError clears the retained error message.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.lastErr = nil
}

// Submit starts analysing up in the background. The previous result, and its
// unlocked state, is discarded. Unsupported media types are rejected without a
// transition; a submission while another is in flight gets ANALYSIS_IN_FLIGHT.
func (s *Session) Submit(ctx context.Context, up Upload) error {
	if err := encoder.CheckMediaType(up.MediaType); err != nil {
		s.mu.Lock()
		// A running analysis keeps its own error slot.
		if !s.status.inFlight() {
			s.errMsg = errors.UserMessage(err)
			s.lastErr = err
		}
		s.lastActive = time.Now()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.status.inFlight() {
		s.mu.Unlock()
		return errors.NewStateError(errors.ErrCodeAnalysisInFlight, "an analysis is already running", nil)
	}
	if s.unlocking {
		s.mu.Unlock()
		return errors.NewStateError(errors.ErrCodeInvalidTransition, "an unlock is in progress", nil)
	}
	s.generation++
	gen := s.generation
	s.status = StatusReading
	s.phase = PhaseReading
	s.errMsg = ""
	s.lastErr = nil
	s.result = nil
	s.historyID = ""
	s.upload = Upload{
		MediaType:         encoder.Normalize(up.MediaType),
		FileName:          up.FileName,
		Industry:          up.Industry,
		Region:            up.Region,
		TargetDescription: up.TargetDescription,
	}
	s.settled = newSettleSignal()
	done := s.settled
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.logger.Info("Analysis submitted",
		"generation", gen,
		"file_name", up.FileName,
		"media_type", up.MediaType,
		"industry", up.Industry,
		"region", up.Region)

	// The model call outlives the caller's request; Reset discards it by generation.
	go s.run(context.WithoutCancel(ctx), gen, up, done)
	return nil
}

// Wait blocks until the current submission settles or ctx ends.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	done := s.settled
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done.ch:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
	return s.Snapshot(), nil
}

// Analyze submits up and waits for it to settle. The returned error is the
// analysis failure, if any.
func (s *Session) Analyze(ctx context.Context, up Upload) (Snapshot, error) {
	if err := s.Submit(ctx, up); err != nil {
		return s.Snapshot(), err
	}
	snap, err := s.Wait(ctx)
	if err != nil {
		return snap, err
	}
	if snap.Status == StatusIdle && snap.Err != nil {
		return snap, snap.Err
	}
	return snap, nil
}

func (s *Session) run(ctx context.Context, gen uint64, up Upload, done *settleSignal) {
	defer done.fire()

	doc, err := s.enc.Encode(ctx, up.Data, up.MediaType, up.FileName)
	if err != nil {
		s.fail(gen, err)
		return
	}

	reporter, ok := s.beginAnalyzing(gen)
	if !ok {
		return
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := types.AnalyzeInput{
		Document:          doc.Data,
		MediaType:         doc.InlineMIME,
		FileName:          up.FileName,
		Industry:          up.Industry,
		Region:            up.Region,
		TargetDescription: up.TargetDescription,
	}
	result, err := s.analyzer.Analyze(callCtx, input, func(p string) { s.setPhase(gen, p) })
	reporter.Stop()

	if err != nil {
		s.fail(gen, err)
		return
	}
	s.succeed(ctx, gen, result)
}

func (s *Session) beginAnalyzing(gen uint64) (*PhaseReporter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("Discarding superseded analysis", "generation", gen)
		return nil, false
	}
	s.status = StatusAnalyzing
	s.reporter = NewPhaseReporter(s.phaseInterval, AnalysisPhases, func(p string) { s.setPhase(gen, p) })
	s.reporter.Start()
	return s.reporter, true
}

func (s *Session) setPhase(gen uint64, phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if !s.status.inFlight() && !s.unlocking {
		return
	}
	s.phase = phase
}

func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding late analysis failure", "generation", gen, "error", err)
		return
	}
	s.status = StatusIdle
	s.phase = ""
	s.result = nil
	s.reporter = nil
	s.errMsg = errors.UserMessage(err)
	s.lastErr = err
	s.mu.Unlock()

	s.logger.LogError(err, "Analysis failed", "generation", gen)
}

func (s *Session) succeed(ctx context.Context, gen uint64, result *types.AnalysisResult) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding late analysis result", "generation", gen)
		return
	}
	s.status = StatusResultReady
	s.phase = ""
	s.result = result
	s.reporter = nil
	up := s.upload
	email := s.userEmail
	s.mu.Unlock()

	s.logger.Info("Analysis complete",
		"generation", gen,
		"verdict", result.Verdict.Status,
		"overall_score", result.OverallScore)

	if s.records == nil {
		return
	}
	entry := types.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserEmail: email,
		FileName:  up.FileName,
		Industry:  up.Industry,
		Region:    up.Region,
		Target:    up.TargetDescription,
		Result:    *result,
	}
	if err := s.records.History.Append(ctx, entry); err != nil {
		s.logger.LogError(err, "Failed to persist history entry", "history_id", entry.ID)
	} else {
		s.mu.Lock()
		if gen == s.generation {
			s.historyID = entry.ID
		}
		s.mu.Unlock()
	}
	s.award(ctx, email, TaskFirstAnalysis)
}

// Reset returns the session to Idle. An analysis still in flight is not
// cancelled; its outcome is discarded when it arrives.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.status = StatusIdle
	s.phase = ""
	s.errMsg = ""
	s.lastErr = nil
	s.result = nil
	s.historyID = ""
	s.upload = Upload{}
	reporter := s.reporter
	s.reporter = nil
	done := s.settled
	s.settled = nil
	s.lastActive = time.Now()
	s.mu.Unlock()

	// Stop waits for the ticking goroutine, which itself takes s.mu.
	if reporter != nil {
		reporter.Stop()
	}
	if done != nil {
		done.fire()
	}
}

// Restore loads a stored analysis as the current result. The entry's unlocked
// flag carries over, so a report paid for once stays open.
func (s *Session) Restore(entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.inFlight() || s.unlocking {
		return errors.NewStateError(errors.ErrCodeAnalysisInFlight, "session is busy", nil)
	}
	s.generation++
	result := entry.Result
	s.result = &result
	s.status = StatusResultReady
	if entry.Unlocked {
		s.status = StatusUnlocked
	}
	s.phase = ""
	s.errMsg = ""
	s.lastErr = nil
	s.historyID = entry.ID
	s.upload = Upload{
		FileName:          entry.FileName,
		Industry:          entry.Industry,
		Region:            entry.Region,
		TargetDescription: entry.Target,
	}
	s.settled = nil
	s.lastActive = time.Now()
	return nil
}

// UnlockMethod selects how an unlock is paid for.
type UnlockMethod string

const (
	UnlockCredit  UnlockMethod = "credit"
	UnlockPayment UnlockMethod = "payment"
)

// ParseUnlockMethod maps user input to an UnlockMethod.
func ParseUnlockMethod(s string) (UnlockMethod, error) {
	switch UnlockMethod(strings.ToLower(strings.TrimSpace(s))) {
	case UnlockCredit, "":
		return UnlockCredit, nil
	case UnlockPayment:
		return UnlockPayment, nil
	}
	return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown unlock method '%s' (use credit or payment)", s), nil)
}

// UnlockOutcome describes a completed unlock.
type UnlockOutcome struct {
	Method           UnlockMethod `json:"method,omitempty"`
	AlreadyUnlocked  bool         `json:"alreadyUnlocked,omitempty"`
	CreditsRemaining int          `json:"creditsRemaining"`
}

// Unlock moves ResultReady to Unlocked. A credit is spent when method is credit
// and the active user has one; otherwise the entitlement granter is asked.
// Unlocking an already unlocked result is a no-op and charges nothing.
func (s *Session) Unlock(ctx context.Context, method UnlockMethod) (UnlockOutcome, error) {
	s.mu.Lock()
	if s.status == StatusUnlocked {
		email := s.userEmail
		s.mu.Unlock()
		return UnlockOutcome{AlreadyUnlocked: true, CreditsRemaining: s.credits(ctx, email)}, nil
	}
	if s.status != StatusResultReady {
		status := s.status
		s.mu.Unlock()
		return UnlockOutcome{}, errors.NewStateError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot unlock from %s", status), nil)
	}
	if s.unlocking {
		s.mu.Unlock()
		return UnlockOutcome{}, errors.NewStateError(errors.ErrCodeInvalidTransition, "an unlock is already in progress", nil)
	}
	s.unlocking = true
	s.errMsg = ""
	s.lastErr = nil
	gen := s.generation
	email := s.userEmail
	s.lastActive = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.unlocking = false
		if gen == s.generation {
			s.phase = ""
		}
		s.mu.Unlock()
	}()

	outcome := UnlockOutcome{Method: UnlockPayment}
	if method == UnlockCredit && s.records != nil && email != "" {
		user, err := s.records.Accounts.SpendCredit(ctx, email)
		switch {
		case err == nil:
			outcome.Method = UnlockCredit
			outcome.CreditsRemaining = user.Tokens
		case errors.HasCode(err, errors.ErrCodeInsufficientCredits):
			s.logger.Info("No credits left, routing unlock to payment", "email", email)
		default:
			return UnlockOutcome{}, err
		}
	}

	if outcome.Method == UnlockPayment {
		if err := s.granter.Grant(ctx, func(p string) { s.setPhase(gen, p) }); err != nil {
			appErr := errors.NewStateError(errors.ErrCodePaymentDeclined, "payment was not completed", err)
			s.mu.Lock()
			if gen == s.generation {
				s.errMsg = appErr.Message
				s.lastErr = appErr
			}
			s.mu.Unlock()
			return UnlockOutcome{}, appErr
		}
		outcome.CreditsRemaining = s.credits(ctx, email)
	}

	s.mu.Lock()
	if gen != s.generation || s.status != StatusResultReady {
		s.mu.Unlock()
		if outcome.Method == UnlockCredit {
			if err := s.records.Accounts.RefundCredit(ctx, email); err != nil {
				s.logger.LogError(err, "Failed to refund credit", "email", email)
			}
		}
		return UnlockOutcome{}, errors.NewStateError(errors.ErrCodeInvalidTransition,
			"session was reset during unlock", nil)
	}
	s.status = StatusUnlocked
	historyID := s.historyID
	s.mu.Unlock()

	s.logger.Info("Report unlocked", "method", outcome.Method, "email", email)
	if historyID != "" && s.records != nil {
		if err := s.records.History.MarkUnlocked(ctx, historyID); err != nil {
			s.logger.LogError(err, "Failed to mark history entry unlocked", "history_id", historyID)
		}
	}
	s.record(ctx, observability.EventReportUnlocked, attribute.String("method", string(outcome.Method)))
	if outcome.Method == UnlockCredit {
		s.record(ctx, observability.EventCreditSpent)
	}
	s.award(ctx, email, TaskUnlockReport)
	return outcome, nil
}

// credits returns the user's balance, or zero without one.
func (s *Session) credits(ctx context.Context, email string) int {
	if s.records == nil || email == "" {
		return 0
	}
	user, err := s.records.Accounts.User(ctx, email)
	if err != nil {
		return 0
	}
	return user.Tokens
}

// unlockedResult returns the result when it may be shown in full.
func (s *Session) unlockedResult() (*types.AnalysisResult, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.result == nil:
		return nil, "", errors.NewStateError(errors.ErrCodeInvalidTransition, "no analysis result available", nil)
	case s.status != StatusUnlocked:
		return nil, "", errors.NewStateError(errors.ErrCodeReportLocked, "unlock the report first", nil)
	}
	return s.result, s.userEmail, nil
}

// ExportSource returns the result for export. It fails with REPORT_LOCKED
// until the report is unlocked.
func (s *Session) ExportSource() (*types.AnalysisResult, error) {
	result, _, err := s.unlockedResult()
	return result, err
}

// RecordExport credits the export task for kind ("pdf" or "docx").
func (s *Session) RecordExport(ctx context.Context, kind string) {
	s.mu.Lock()
	email := s.userEmail
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.record(ctx, observability.EventReportExported, attribute.String("format", kind))
	switch kind {
	case "pdf":
		s.award(ctx, email, TaskExportPDF)
	case "docx":
		s.award(ctx, email, TaskExportDOCX)
	}
}

// PrepDeck generates the full interview deck for the unlocked result.
func (s *Session) PrepDeck(ctx context.Context, gen DeckGenerator) ([]types.InterviewQuestion, error) {
	result, email, err := s.unlockedResult()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	input := types.PrepDeckInput{
		ResumeSummary:     ResumeSummary(result),
		Industry:          s.upload.Industry,
		TargetDescription: s.upload.TargetDescription,
	}
	s.lastActive = time.Now()
	s.mu.Unlock()

	questions, err := gen.PrepDeck(ctx, input)
	if err != nil {
		return nil, err
	}
	s.award(ctx, email, TaskPrepDeck)
	return questions, nil
}

// ResumeSummary condenses a result into the context sent with a prep deck request.
func ResumeSummary(r *types.AnalysisResult) string {
	var b strings.Builder
	if name := strings.TrimSpace(r.ExtractedData.Name); name != "" {
		fmt.Fprintf(&b, "Candidate: %s. ", name)
	}
	if r.RecruiterJustification != "" {
		fmt.Fprintf(&b, "Recruiter view: %s ", r.RecruiterJustification)
	}
	if len(r.ExtractedData.Skills) > 0 {
		fmt.Fprintf(&b, "Key skills: %s.", strings.Join(r.ExtractedData.Skills, ", "))
	}
	return strings.TrimSpace(b.String())
}

func (s *Session) award(ctx context.Context, email, task string) {
	if s.records == nil || email == "" {
		return
	}
	user, awarded, err := s.records.Accounts.CompleteTask(ctx, email, task)
	if err != nil {
		s.logger.LogError(err, "Failed to award task", "task", task, "email", email)
		return
	}
	if awarded {
		s.logger.Debug("Task completed", "task", task, "email", email, "xp", user.XP, "level", user.Level)
	}
}

func (s *Session) record(ctx context.Context, event string, attrs ...attribute.KeyValue) {
	if s.recorder != nil {
		s.recorder.RecordEvent(ctx, event, true, attrs...)
	}
}
