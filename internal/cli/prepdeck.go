package cli

import (
	"resumeforensics/internal/common"
	"resumeforensics/internal/types"

	"github.com/spf13/cobra"
)

var prepDeckCmd = &cobra.Command{
	Use:   "prepdeck [history-id]",
	Short: "Generate a 15-question interview prep deck for an unlocked analysis",
	Long: `Generate the full interview prep deck (behavioral, technical, situational
and trap questions with STAR answers) for a stored analysis. The analysis must
be unlocked first.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(prepDeckConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		prepDeckConfig.OutputFormat = format
		return err
	},
	RunE: runPrepDeck,
}

var prepDeckConfig common.CommandConfig

func init() {
	prepDeckCmd.Flags().StringVarP(&prepDeckConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	prepDeckCmd.Flags().StringVar(&prepDeckConfig.OutputFormat, "format", "", "Output format: json, text or markdown")
}

func runPrepDeck(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	s, err := restoreSession(cmd, rt, args[0])
	if err != nil {
		return err
	}
	if _, err := s.ExportSource(); err != nil {
		return err
	}

	services, err := rt.AI()
	if err != nil {
		return err
	}
	rt.Logger.Info("Generating interview prep deck", "history_id", args[0])

	questions, err := s.PrepDeck(cmd.Context(), services.PrepDeck)
	if err != nil {
		return err
	}

	output := common.NewOutputHandler(rt.Logger).WithWriter(cmd.OutOrStdout())
	return output.HandleOutput(types.PrepDeck{Questions: questions}, prepDeckConfig)
}
