// Command unetd runs the μNet control plane: the policy DSL scheduler, the
// SNMP polling/reconciliation pipeline, and the config-slicer CLI utilities,
// all sharing one store.Store in a single process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	storeBackend string // "memory" or "postgres"
	postgresDSN  string
	policyDir    string
	logLevel     string
	metricsAddr  string
	metricsOn    bool

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "unetd",
	Short: "μNet network configuration management daemon",
	Long: `unetd runs the μNet control plane: a policy DSL engine that evaluates
rules against desired and derived node state, an SNMP poller that keeps
derived state current, and a vendor-aware config slicer/diff engine, all
sharing one transactional store.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("unetd %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "memory", "Store backend: memory or postgres")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN, required when --store=postgres")
	rootCmd.PersistentFlags().StringVar(&policyDir, "policy-dir", "./policies", "Directory of .unet policy rule files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&metricsOn, "metrics-enable", false, "Enable the Prometheus metrics endpoint")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":8080", "Address to listen on for Prometheus metrics")

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sliceCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
