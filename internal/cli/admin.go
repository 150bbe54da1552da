package cli

import (
	"fmt"
	"os"
	"strconv"

	"resumeforensics/internal/common"
	"resumeforensics/internal/session"
	"resumeforensics/internal/types"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator commands for users, tokens, plans and history",
	Long: `Operator commands. Every subcommand except "hash" requires the admin
passphrase, given with --passphrase or the RESUMEFORENSICS_ADMIN_PASSPHRASE
environment variable, matching admin.passphraseHash in the configuration.`,
}

var adminHashCmd = &cobra.Command{
	Use:   "hash [passphrase]",
	Short: "Print the bcrypt hash to store in admin.passphraseHash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := session.HashPassphrase(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(rt *common.Runtime) error {
			users, err := rt.Records.Admin.Users(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range users {
				fmt.Fprintf(out, "%-32s %-20s credits=%d level=%d xp=%d\n", u.Email, u.Name, u.Tokens, u.Level, u.XP)
			}
			return nil
		})
	},
}

var adminTokensCmd = &cobra.Command{
	Use:   "tokens [email] [delta]",
	Short: "Add (or with a negative delta, remove) unlock credits",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid delta %q: %w", args[1], err)
		}
		return withAdmin(cmd, func(rt *common.Runtime) error {
			user, err := rt.Records.Admin.AdjustTokens(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		})
	},
}

var adminPlanSetCmd = &cobra.Command{
	Use:   "plan-set [plan-id]",
	Short: "Create or replace a pricing plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan := types.PricingPlan{
			ID:       args[0],
			Name:     planName,
			Price:    planPrice,
			Credits:  planCredits,
			Features: planFeatures,
		}
		return withAdmin(cmd, func(rt *common.Runtime) error {
			if err := rt.Records.Admin.UpsertPlan(cmd.Context(), plan); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved plan %s\n", plan.ID)
			return nil
		})
	},
}

var adminPlanDeleteCmd = &cobra.Command{
	Use:   "plan-delete [plan-id]",
	Short: "Delete a pricing plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(rt *common.Runtime) error {
			if err := rt.Records.Admin.DeletePlan(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %s\n", args[0])
			return nil
		})
	},
}

var adminClearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Delete every stored analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(rt *common.Runtime) error {
			if err := rt.Records.Admin.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		})
	},
}

var (
	adminPassphrase string
	planName        string
	planPrice       string
	planCredits     int
	planFeatures    []string
)

func init() {
	adminCmd.PersistentFlags().StringVar(&adminPassphrase, "passphrase", "", "Admin passphrase")

	adminPlanSetCmd.Flags().StringVar(&planName, "name", "", "Plan display name")
	adminPlanSetCmd.Flags().StringVar(&planPrice, "price", "", "Display price, e.g. $9")
	adminPlanSetCmd.Flags().IntVar(&planCredits, "credits", 0, "Unlock credits granted on purchase")
	adminPlanSetCmd.Flags().StringSliceVar(&planFeatures, "feature", nil, "Feature line (repeatable)")
	_ = adminPlanSetCmd.MarkFlagRequired("name")

	adminCmd.AddCommand(adminHashCmd)
	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminTokensCmd)
	adminCmd.AddCommand(adminPlanSetCmd)
	adminCmd.AddCommand(adminPlanDeleteCmd)
	adminCmd.AddCommand(adminClearHistoryCmd)
}

func withAdmin(cmd *cobra.Command, fn func(rt *common.Runtime) error) error {
	passphrase := adminPassphrase
	if passphrase == "" {
		passphrase = os.Getenv("RESUMEFORENSICS_ADMIN_PASSPHRASE")
	}
	return withRuntime(cmd, func(rt *common.Runtime) error {
		if err := rt.Records.Admin.Authorize(passphrase); err != nil {
			return err
		}
		return fn(rt)
	})
}
