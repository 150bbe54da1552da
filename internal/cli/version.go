package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information - can be set during build with ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information for resumeforensics",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "resumeforensics version %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", GitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s\n", BuildDate)
	},
}
