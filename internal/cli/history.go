package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded bench runs",
		Long: `List bench runs recorded with --history, newest first.

Examples:
  chatload history --history runs.db
  chatload history show 0190c9e2-... --history runs.db --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withHistory(cmd, func(e *env) error {
				store, err := e.openHistory()
				if err != nil {
					return err
				}
				defer store.Close()

				runs, err := store.List(limit)
				if err != nil {
					return err
				}
				return e.render(runs, func() string { return e.fmt.FormatHistory(runs) })
			})
		},
	}
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(e *env) error {
				store, err := e.openHistory()
				if err != nil {
					return err
				}
				defer store.Close()

				run, err := store.Get(args[0])
				if err != nil {
					return err
				}
				return e.render(run, func() string { return e.fmt.FormatScenario(run.Result) })
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(e *env) error {
				store, err := e.openHistory()
				if err != nil {
					return err
				}
				defer store.Close()
				return store.Delete(args[0])
			})
		},
	}

	historyCmd.AddCommand(showCmd)
	historyCmd.AddCommand(deleteCmd)
	return historyCmd
}

func withHistory(cmd *cobra.Command, fn func(*env) error) error {
	e, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.History.Path == "" {
		return errors.New("no history file: pass --history or set history.path")
	}
	return fn(e)
}
