package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/leave-ledger/tools"
)

// runTool executes one leave tool against the configured store and prints
// its text result.
func runTool(cmd *cobra.Command, name string, args map[string]any) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := tools.NewLeaveRegistry(a.validator).Execute(cmd.Context(), name, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

var balanceCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "balance EMPLOYEE_ID",
	Short: "Show remaining leave days.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "get_leave_balance", map[string]any{"employee_id": args[0]})
	},
}

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "apply EMPLOYEE_ID DATE...",
	Short: "Book leave on one or more YYYY-MM-DD dates.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "apply_leave", map[string]any{
			"employee_id": args[0],
			"leave_dates": args[1:],
		})
	},
}

var historyCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "history EMPLOYEE_ID",
	Short: "List booked leave dates.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "get_leave_history", map[string]any{"employee_id": args[0]})
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(balanceCmd, applyCmd, historyCmd)
}
