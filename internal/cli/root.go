package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "chatload",
		Short:   "Load generator and conformance checker for the chat service",
		Version: version,
		Long: `chatload drives a chat service through its client API.

It provisions accounts, guilds and channels on demand, measures how long
batches of messages take to send under concurrent load, races live event
subscriptions against paced senders, and checks that every client operation
behaves as expected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "configuration file (YAML or JSON)")
	flags.String("server", "", "chat service base URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("dev-log", false, "human-readable console logs")
	flags.StringP("output", "o", "text", "output format: text, json, yaml")
	flags.Bool("json", false, "shorthand for --output json")
	flags.Bool("no-color", false, "disable colored output")
	flags.BoolP("verbose", "v", false, "show per-operation latency and step timings")
	flags.String("history", "", "run history file (bbolt)")

	return root
}

func addCommands(root *cobra.Command) {
	root.AddCommand(newBenchCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newHistoryCmd())
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	addCommands(RootCmd)
}
