package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"resumeforensics/internal/common"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/session"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Run a forensic recruiter analysis of a resume",
	Long: `Analyze a resume (PDF, DOCX or plain text) the way a senior hiring partner
in the chosen industry and region would read it.

The report header, bullet risk, skills intelligence, narrative risk and
interview intelligence are always shown. The document view, eye-tracking
heatmap, recruiter tips, bullet critique details, objection handling,
freshness audit and ideal resume require an unlock:

  --unlock credit    spend one account credit (falls back to payment at zero)
  --unlock payment   go through the simulated payment gateway
  --export pdf,docx  export after unlocking (unlocks with a credit if needed)

The analysis is stored in history; its id can be passed to the unlock,
export and prepdeck commands later.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(analyzeConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		analyzeConfig.OutputFormat = format

		if analyzeOpts.target, err = common.ParseAnalysisTarget(analyzeOpts.industry, analyzeOpts.region); err != nil {
			return err
		}
		if analyzeOpts.exportKinds, err = common.ParseExportKinds(analyzeOpts.export); err != nil {
			return err
		}
		if analyzeOpts.unlock != "" {
			if _, err := session.ParseUnlockMethod(analyzeOpts.unlock); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

var analyzeOpts struct {
	industry    string
	region      string
	targetText  string
	targetFile  string
	unlock      string
	export      string
	outDir      string
	target      common.AnalysisTarget
	exportKinds []string
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, markdown or html")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.industry, "industry", "i", "tech", "Industry benchmark: audit, finance, consulting or tech")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.region, "region", "r", "US", "Hiring market: India, US, UK or Middle East")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.targetText, "target", "t", "", "Target job description text")
	analyzeCmd.Flags().StringVar(&analyzeOpts.targetFile, "target-file", "", "File holding the target job description")
	analyzeCmd.Flags().StringVar(&analyzeOpts.unlock, "unlock", "", "Unlock the full report: credit or payment")
	analyzeCmd.Flags().StringVar(&analyzeOpts.export, "export", "", "Comma-separated exports: pdf, docx")
	analyzeCmd.Flags().StringVar(&analyzeOpts.outDir, "out-dir", "", "Directory for exported files (default from config)")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
	_ = analyzeCmd.RegisterFlagCompletionFunc("unlock", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(session.UnlockCredit), string(session.UnlockPayment)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)
	stderr := cmd.ErrOrStderr()

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	files := common.NewFileProcessor(logger)
	data, mediaType, err := files.ReadDocument(args[0])
	if err != nil {
		return err
	}
	target := analyzeOpts.targetText
	if analyzeOpts.targetFile != "" {
		if target, err = files.ReadText(analyzeOpts.targetFile); err != nil {
			return err
		}
	}

	services, err := rt.AI()
	if err != nil {
		return err
	}
	s := rt.NewSession(userEmail, services.Analyze)

	logger.Info("Starting resume analysis",
		"file", args[0],
		"media_type", mediaType,
		"industry", analyzeOpts.target.Industry,
		"region", analyzeOpts.target.Region,
		"has_target", strings.TrimSpace(target) != "",
		"output_format", analyzeConfig.OutputFormat)

	if err := s.Submit(ctx, session.Upload{
		Data:              data,
		MediaType:         mediaType,
		FileName:          filepath.Base(args[0]),
		Industry:          analyzeOpts.target.Industry,
		Region:            analyzeOpts.target.Region,
		TargetDescription: target,
	}); err != nil {
		return userError(err)
	}

	var snap session.Snapshot
	err = withPhases(s, stderr, func() error {
		var waitErr error
		snap, waitErr = s.Wait(ctx)
		return waitErr
	})
	if err != nil {
		return err
	}
	if snap.Status != session.StatusResultReady {
		if snap.Err != nil {
			return userError(snap.Err)
		}
		return fmt.Errorf("analysis did not complete (status %s)", snap.Status)
	}
	fmt.Fprintf(stderr, "History ID: %s\n", snap.HistoryID)

	method := analyzeOpts.unlock
	if method == "" && len(analyzeOpts.exportKinds) > 0 {
		method = string(session.UnlockCredit)
	}
	if method != "" {
		if err := unlockSession(cmd, s, method); err != nil {
			return err
		}
	}

	output := common.NewOutputHandler(logger).WithWriter(cmd.OutOrStdout())
	rep := formatters.BuildReport(snap.Result, s.Snapshot().Unlocked)
	if err := output.HandleOutput(rep, analyzeConfig); err != nil {
		return err
	}

	for _, kind := range analyzeOpts.exportKinds {
		if err := exportSession(cmd, rt, s, kind, analyzeOpts.outDir); err != nil {
			return err
		}
	}

	logger.Info("Resume analysis completed successfully", "history_id", snap.HistoryID)
	return nil
}
