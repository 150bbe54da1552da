package cli

import (
	"fmt"
	"io"

	"resumeforensics/internal/common"
	"resumeforensics/internal/session"
	"resumeforensics/internal/types"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the local account used for credits and XP",
	Long: `Local accounts hold unlock credits, XP and completed tasks. They are
keyed by email and are not an authentication mechanism.`,
}

var accountRegisterCmd = &cobra.Command{
	Use:   "register [email]",
	Short: "Create an account, or return the existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *common.Runtime) error {
			user, err := rt.Records.Accounts.Register(cmd.Context(), accountName, args[0])
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		})
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the account selected with --user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := requireUser()
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *common.Runtime) error {
			user, err := rt.Records.Accounts.User(cmd.Context(), email)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		})
	},
}

var accountBuyCmd = &cobra.Command{
	Use:   "buy [plan-id]",
	Short: "Buy a pricing plan through the simulated payment gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := requireUser()
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *common.Runtime) error {
			ctx := cmd.Context()
			if _, err := rt.Records.Accounts.User(ctx, email); err != nil {
				return err
			}
			gateway := session.NewSimulatedPayment(rt.Config.Payment)
			if err := gateway.Grant(ctx, func(phase string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", phase)
			}); err != nil {
				return err
			}
			user, err := rt.Records.Accounts.PurchasePlan(ctx, email, args[0])
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		})
	},
}

var accountName string

func init() {
	accountRegisterCmd.Flags().StringVarP(&accountName, "name", "n", "", "Display name (default: email local part)")

	accountCmd.AddCommand(accountRegisterCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountBuyCmd)
}

// withRuntime opens the runtime for fn and closes it afterwards.
func withRuntime(cmd *cobra.Command, fn func(rt *common.Runtime) error) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)
	return fn(rt)
}

func requireUser() (string, error) {
	if userEmail == "" {
		return "", fmt.Errorf("--user is required")
	}
	return userEmail, nil
}

func printUser(w io.Writer, u types.User) {
	fmt.Fprintf(w, "Name: %s\n", u.Name)
	fmt.Fprintf(w, "Email: %s\n", u.Email)
	fmt.Fprintf(w, "Credits: %d\n", u.Tokens)
	fmt.Fprintf(w, "Level: %d (%d XP)\n", u.Level, u.XP)
	if len(u.CompletedTasks) > 0 {
		fmt.Fprintf(w, "Completed tasks: %v\n", u.CompletedTasks)
	}
}
