/*
main.go - Application entry point

PURPOSE:
  Hands control to the leavectl command tree.

COMMANDS:
  server     Run the HTTP API
  provision  Seed employees (--sample, --file employees.xlsx, --force)
  balance    get_leave_balance EMPLOYEE_ID
  apply      apply_leave EMPLOYEE_ID DATE...
  history    get_leave_history EMPLOYEE_ID
  version    Print the version

CONFIGURATION:
  --config-dir (default ./config) holds app-config.yaml and
  <CONFIG_ENV>.yaml. LEAVE_* environment variables override files, e.g.
  LEAVE_STORAGE_DRIVER=postgres DATABASE_URL=postgres://...

EXAMPLES:
  # Seed the sample data once, then serve
  ./server provision --sample
  ./server server

  # Book two days from the shell
  ./server apply E001 2025-06-10 2025-06-11

SEE ALSO:
  - cli/: Command implementations
  - config/config.go: Configuration keys
*/
package main

import (
	"os"

	"github.com/warp/leave-ledger/cli"
)

func main() {
	if err := cli.Run(); err != nil {
		os.Exit(1)
	}
}
