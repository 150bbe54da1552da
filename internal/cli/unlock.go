package cli

import (
	"fmt"

	"resumeforensics/internal/common"
	"resumeforensics/internal/formatters"
	"resumeforensics/internal/session"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock [history-id]",
	Short: "Unlock the full report of a stored analysis",
	Long: `Unlock a stored analysis with one account credit or the simulated payment
gateway, then print the full report. With --method credit and no credits
left, the unlock goes through payment instead. Unlocking an already unlocked
report charges nothing.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(unlockConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		unlockConfig.OutputFormat = format
		_, err = session.ParseUnlockMethod(unlockMethod)
		return err
	},
	RunE: runUnlock,
}

var (
	unlockConfig common.CommandConfig
	unlockMethod string
)

func init() {
	unlockCmd.Flags().StringVarP(&unlockConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	unlockCmd.Flags().StringVar(&unlockConfig.OutputFormat, "format", "", "Output format: json, text, markdown or html")
	unlockCmd.Flags().StringVarP(&unlockMethod, "method", "m", string(session.UnlockCredit), "Unlock method: credit or payment")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	s, err := restoreSession(cmd, rt, args[0])
	if err != nil {
		return err
	}
	if err := unlockSession(cmd, s, unlockMethod); err != nil {
		return err
	}

	snap := s.Snapshot()
	output := common.NewOutputHandler(rt.Logger).WithWriter(cmd.OutOrStdout())
	return output.HandleOutput(formatters.BuildReport(snap.Result, snap.Unlocked), unlockConfig)
}

// unlockSession unlocks s, echoing payment phases and the outcome to stderr.
func unlockSession(cmd *cobra.Command, s *session.Session, method string) error {
	m, err := session.ParseUnlockMethod(method)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()

	var outcome session.UnlockOutcome
	err = withPhases(s, stderr, func() error {
		var unlockErr error
		outcome, unlockErr = s.Unlock(cmd.Context(), m)
		return unlockErr
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.AlreadyUnlocked:
		fmt.Fprintln(stderr, "Report already unlocked")
	case outcome.Method == session.UnlockCredit:
		fmt.Fprintf(stderr, "Report unlocked with 1 credit (%d remaining)\n", outcome.CreditsRemaining)
	default:
		fmt.Fprintln(stderr, "Report unlocked via secure payment")
	}
	return nil
}
