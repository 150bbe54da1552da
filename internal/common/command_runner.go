package common

import (
	"context"
	"fmt"
	"sync"

	"resumeforensics/internal/ai"
	"resumeforensics/internal/config"
	"resumeforensics/internal/encoder"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/export"
	"resumeforensics/internal/session"
	"resumeforensics/internal/store"
)

// Runtime bundles the components shared by every command and the HTTP server.
type Runtime struct {
	Config   *config.Config
	Logger   *errors.Logger
	Repo     store.Repository
	Records  *session.Records
	Encoder  *encoder.Encoder
	Exporter *export.Exporter

	// Recorder receives business events when observability is wired.
	Recorder session.EventRecorder

	aiOnce   sync.Once
	services *ai.Services
	aiErr    error
}

// NewRuntime opens the configured repository and builds the non-AI components.
// AI services are created lazily so commands that never call the model work
// without an API key.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Runtime, error) {
	repo, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("Storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Repo:     repo,
		Records:  session.NewRecords(repo, cfg.Session.HistoryLimit, cfg.Admin.PassphraseHash, logger),
		Encoder:  encoder.New(cfg.App.MaxFileSize, logger),
		Exporter: export.New(export.NewChromeRenderer(cfg.Export), logger),
	}, nil
}

// UseServices injects prebuilt AI services, bypassing lazy construction.
func (rt *Runtime) UseServices(s *ai.Services) {
	rt.aiOnce.Do(func() {})
	rt.services = s
	rt.aiErr = nil
}

// AI returns the AI services, creating them on first use.
func (rt *Runtime) AI() (*ai.Services, error) {
	rt.aiOnce.Do(func() {
		rt.services, rt.aiErr = ai.NewServices(rt.Config, rt.Logger)
		if rt.aiErr != nil {
			rt.aiErr = fmt.Errorf("failed to create AI services: %w", rt.aiErr)
		}
	})
	return rt.services, rt.aiErr
}

// NewSession builds a session for email backed by the runtime's records.
func (rt *Runtime) NewSession(email string, analyzer session.Analyzer) *session.Session {
	analyzeCfg := rt.Config.GetAnalyzeConfig()
	timeout := rt.Config.AI.Timeout
	if analyzeCfg.Timeout != nil {
		timeout = *analyzeCfg.Timeout
	}
	return session.New(analyzer, rt.Encoder, session.Options{
		UserEmail:       email,
		PhaseInterval:   rt.Config.Session.PhaseInterval,
		AnalysisTimeout: timeout,
		Granter:         session.NewSimulatedPayment(rt.Config.Payment),
		Records:         rt.Records,
		Recorder:        rt.Recorder,
		Logger:          rt.Logger,
	})
}

// Close releases the repository.
func (rt *Runtime) Close() error {
	if rt.Repo == nil {
		return nil
	}
	return rt.Repo.Close()
}
