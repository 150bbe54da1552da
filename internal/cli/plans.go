package cli

import (
	"fmt"
	"strings"

	"resumeforensics/internal/common"

	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List pricing plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *common.Runtime) error {
			plans, err := rt.Records.Accounts.Plans(cmd.Context())
			if err != nil {
				return err
			}
			if plansFormat == "json" {
				return common.NewOutputHandler(rt.Logger).WithWriter(cmd.OutOrStdout()).
					HandleOutput(plans, common.CommandConfig{OutputFormat: "json"})
			}
			out := cmd.OutOrStdout()
			for _, p := range plans {
				fmt.Fprintf(out, "%-10s %-16s %8s  %d credit(s)\n", p.ID, p.Name, p.Price, p.Credits)
				if len(p.Features) > 0 {
					fmt.Fprintf(out, "           %s\n", strings.Join(p.Features, "; "))
				}
			}
			return nil
		})
	},
}

var plansFormat string

func init() {
	plansCmd.Flags().StringVar(&plansFormat, "format", "text", "Output format: text or json")
}
