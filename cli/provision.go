package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/provision"
)

var (
	provisionSample bool   //nolint:gochecknoglobals
	provisionFile   string //nolint:gochecknoglobals
	provisionForce  bool   //nolint:gochecknoglobals
)

var provisionCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "provision",
	Short: "Create employees and their initial leave history.",
	Long: "Seeds the ledger from the built-in sample (--sample) and/or an .xlsx workbook (--file).\n" +
		"Without --force nothing is written when employees already exist.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var employees []leave.Employee
		if provisionSample {
			employees = append(employees, provision.Sample()...)
		}
		if provisionFile != "" {
			loaded, err := provision.LoadWorkbook(provisionFile)
			if err != nil {
				return err
			}
			employees = append(employees, loaded...)
		}
		if len(employees) == 0 {
			return fmt.Errorf("nothing to provision: pass --sample or --file")
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if provisionForce {
			if err := provision.Seed(cmd.Context(), a.store, employees); err != nil {
				return err
			}
			fmt.Fprintf(out, "Provisioned %d employee(s).\n", len(employees))
			return nil
		}

		seeded, err := provision.SeedIfEmpty(cmd.Context(), a.store, employees)
		if err != nil {
			return err
		}
		if !seeded {
			fmt.Fprintln(out, "Employees already exist; nothing written (use --force to upsert).")
			return nil
		}
		fmt.Fprintf(out, "Provisioned %d employee(s).\n", len(employees))
		return nil
	},
}

func init() { //nolint:gochecknoinits
	provisionCmd.Flags().BoolVar(&provisionSample, "sample", false, "seed the sample employees E001 and E002")
	provisionCmd.Flags().StringVar(&provisionFile, "file", "", "seed employees from an .xlsx workbook")
	provisionCmd.Flags().BoolVar(&provisionForce, "force", false, "upsert even when employees already exist")
	rootCmd.AddCommand(provisionCmd)
}
