package cli

import (
	"fmt"

	"resumeforensics/internal/common"
	"resumeforensics/internal/formatters"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show and delete stored analyses",
	Long: `List stored analyses, newest first. With --user only that account's
analyses are listed.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [history-id]",
	Short: "Print the report of a stored analysis",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(historyShowConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		historyShowConfig.OutputFormat = format
		return err
	},
	RunE: runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [history-id]",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var (
	historyListFormat string
	historyShowConfig common.CommandConfig
)

func init() {
	historyCmd.Flags().StringVar(&historyListFormat, "format", "text", "Output format: text or json")
	historyShowCmd.Flags().StringVarP(&historyShowConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	historyShowCmd.Flags().StringVar(&historyShowConfig.OutputFormat, "format", "", "Output format: json, text, markdown or html")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	entries, err := rt.Records.History.List(cmd.Context(), userEmail)
	if err != nil {
		return err
	}
	output := common.NewOutputHandler(rt.Logger).WithWriter(cmd.OutOrStdout())
	return output.HandleOutput(formatters.SummarizeHistory(entries), common.CommandConfig{OutputFormat: historyListFormat})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	entry, err := rt.Records.History.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	output := common.NewOutputHandler(rt.Logger).WithWriter(cmd.OutOrStdout())
	return output.HandleOutput(formatters.BuildReport(&entry.Result, entry.Unlocked), historyShowConfig)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	if err := rt.Records.History.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
