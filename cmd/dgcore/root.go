package dgcore

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	flagConfig  string
	flagSocket  string
	flagPipe    string
	flagJSON    bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "dg-core",
	Short:         "Local content scanning and redaction daemon",
	Long:          "dg-core runs a local-only daemon that scans text and files for sensitive data and redacts them according to a policy. Clients talk to it over a Unix socket or named pipe using newline-delimited JSON-RPC.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "unix socket path of the daemon")
	rootCmd.PersistentFlags().StringVar(&flagPipe, "pipe", "", "windows named pipe of the daemon")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON results")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
