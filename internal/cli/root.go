package cli

import (
	"context"
	"fmt"

	"resumeforensics/internal/common"
	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/session"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// userEmail is the account credited with XP and charged for unlocks.
var userEmail string

var rootCmd = &cobra.Command{
	Use:   "resumeforensics",
	Short: "Forensic resume analysis from a recruiter's point of view",
	Long: `Resumeforensics sends a resume to a generative model and returns a
recruiter-grade forensic report: verdict, scores, bullet audit, skills
intelligence and interview intelligence. The full report, the interview prep
deck and the PDF/DOCX exports unlock with a credit or a simulated payment.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// openRuntime builds the shared components for one command run.
func openRuntime(cmd *cobra.Command) (*common.Runtime, error) {
	return common.NewRuntime(cmd.Context(), getConfigFromContext(cmd.Context()), getLoggerFromContext(cmd.Context()))
}

// closeRuntime releases the runtime, logging rather than returning failures.
func closeRuntime(rt *common.Runtime) {
	if err := rt.Close(); err != nil {
		rt.Logger.LogError(err, "Failed to close storage")
	}
}

// restoreSession loads a stored analysis into a fresh session for the active user.
func restoreSession(cmd *cobra.Command, rt *common.Runtime, historyID string) (*session.Session, error) {
	entry, err := rt.Records.History.Get(cmd.Context(), historyID)
	if err != nil {
		return nil, err
	}
	s := rt.NewSession(userEmail, nil)
	if err := s.Restore(entry); err != nil {
		return nil, err
	}
	return s, nil
}

// userError prints the collapsed message next to the underlying error.
func userError(err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrCodeUnsupportedFormat:
			return fmt.Errorf("%s: %w", errors.MessageUnsupportedFormat, err)
		case errors.ErrCodeAIServiceFailed, errors.ErrCodeAITimeout, errors.ErrCodeAIResponseParseFailed,
			errors.ErrCodeSchemaViolation, errors.ErrCodeCircuitOpen:
			return fmt.Errorf("%s: %w", errors.MessageAnalysisFailed, err)
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userEmail, "user", "u", "", "Account email (credits, XP and history)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(prepDeckCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
