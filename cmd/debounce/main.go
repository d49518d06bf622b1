package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/debounce/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "debounce",
		Short: "Watch a value settle",
		Long: `debounce feeds input into a debounced value and prints what settles.

Every write updates the immediate value at once. The debounced value
follows only after the delay passes with no further writes, so a burst
of input produces a single settled result.

Configuration is read from debounce.json or debounce.yaml in the
working directory, then DEBOUNCE_DELAY, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		typeCmd(&flags),
		watchCmd(&flags),
		versionCmd(),
	)

	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
