package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/chatload/internal/bench"
	"github.com/wesleyorama2/chatload/internal/config"
)

func newBenchCmd() *cobra.Command {
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a load scenario against the chat service",
		Long: `Run one of the load scenarios:

  send-messages  batches of messages from a few clients, averaged over trials
  smoketest      many clients, each flooding its own guild
  single-guild   many clients in one guild, each with a live event stream

Examples:
  chatload bench send-messages --clients 4 --sizes 10,100,1000 --trials 10
  chatload bench smoketest --clients 1000 --messages 1000
  chatload bench single-guild --config bench.yaml --history runs.db`,
	}

	benchCmd.AddCommand(newSendMessagesCmd())
	benchCmd.AddCommand(newSmoketestCmd())
	benchCmd.AddCommand(newSingleGuildCmd())
	return benchCmd
}

func newSendMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   bench.ScenarioSendMessages,
		Short: "Average the time to send batches of messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, func(cfg *config.Config) error {
				flags := cmd.Flags()
				if flags.Changed("clients") {
					cfg.SendMessages.Clients, _ = flags.GetInt("clients")
				}
				if flags.Changed("sizes") {
					cfg.SendMessages.Sizes, _ = flags.GetIntSlice("sizes")
				}
				if flags.Changed("trials") {
					cfg.SendMessages.Trials, _ = flags.GetInt("trials")
				}
				if noWarmup, _ := flags.GetBool("no-warmup"); noWarmup {
					cfg.SendMessages.Warmup = false
				}
				return nil
			}, func(e *env, h *bench.Harness) runFunc {
				sm := e.cfg.SendMessages
				return func(cmd *cobra.Command) (*bench.ScenarioResult, error) {
					ctx, cancel := e.runContext(cmd.Context())
					defer cancel()
					return h.SendMessages(ctx, bench.SendMessagesOptions{
						Clients: sm.Clients,
						Sizes:   sm.Sizes,
						Trials:  sm.Trials,
						Warmup:  sm.Warmup,
					})
				}
			})
		},
	}

	cmd.Flags().Int("clients", 0, "number of clients (default from config: 4)")
	cmd.Flags().IntSlice("sizes", nil, "messages per batch, comma separated (default from config: 10,100,1000)")
	cmd.Flags().Int("trials", 0, "measured trials (default from config: 10)")
	cmd.Flags().Bool("no-warmup", false, "skip the warm-up trial")
	return cmd
}

func newSmoketestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   bench.ScenarioSmoketest,
		Short: "Send from many clients at once, each in its own guild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, func(cfg *config.Config) error {
				flags := cmd.Flags()
				if flags.Changed("clients") {
					cfg.Smoketest.Clients, _ = flags.GetInt("clients")
				}
				if flags.Changed("messages") {
					cfg.Smoketest.Messages, _ = flags.GetInt("messages")
				}
				return nil
			}, func(e *env, h *bench.Harness) runFunc {
				st := e.cfg.Smoketest
				return func(cmd *cobra.Command) (*bench.ScenarioResult, error) {
					ctx, cancel := e.runContext(cmd.Context())
					defer cancel()
					return h.Smoketest(ctx, bench.SmoketestOptions{Clients: st.Clients, Messages: st.Messages})
				}
			})
		},
	}

	cmd.Flags().Int("clients", 0, "number of clients (default from config: 1000)")
	cmd.Flags().Int("messages", 0, "messages per client (default from config: 1000)")
	return cmd
}

func newSingleGuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   bench.ScenarioSingleGuild,
		Short: "Race live event streams against paced senders in one guild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, func(cfg *config.Config) error {
				flags := cmd.Flags()
				if flags.Changed("clients") {
					cfg.SingleGuild.Clients, _ = flags.GetInt("clients")
				}
				if flags.Changed("messages") {
					cfg.SingleGuild.Messages, _ = flags.GetInt("messages")
				}
				if flags.Changed("think-min") {
					d, _ := flags.GetDuration("think-min")
					cfg.SingleGuild.ThinkTime.Min = config.Duration(d)
				}
				if flags.Changed("think-max") {
					d, _ := flags.GetDuration("think-max")
					cfg.SingleGuild.ThinkTime.Max = config.Duration(d)
				}
				if flags.Changed("invite") {
					cfg.SingleGuild.InviteID, _ = flags.GetString("invite")
				}
				return nil
			}, func(e *env, h *bench.Harness) runFunc {
				sg := e.cfg.SingleGuild
				return func(cmd *cobra.Command) (*bench.ScenarioResult, error) {
					ctx, cancel := e.runContext(cmd.Context())
					defer cancel()
					return h.SingleGuild(ctx, bench.SingleGuildOptions{
						Clients:  sg.Clients,
						Messages: sg.Messages,
						ThinkMin: sg.ThinkTime.Min.Std(),
						ThinkMax: sg.ThinkTime.Max.Std(),
						InviteID: sg.InviteID,
					})
				}
			})
		},
	}

	cmd.Flags().Int("clients", 0, "number of clients (default from config: 1000)")
	cmd.Flags().Int("messages", 0, "messages per client (default from config: 10)")
	cmd.Flags().Duration("think-min", 0, "shortest pause between sends (default from config: 200ms)")
	cmd.Flags().Duration("think-max", 0, "longest pause between sends (default from config: 1s)")
	cmd.Flags().String("invite", "", "invite code shared by the guild owner (default from config: test)")
	return cmd
}

type runFunc func(cmd *cobra.Command) (*bench.ScenarioResult, error)

// runScenario resolves the configuration, runs the scenario, stores it in the
// history when enabled and renders the result.
func runScenario(cmd *cobra.Command, apply func(*config.Config) error, build func(*env, *bench.Harness) runFunc) error {
	e, err := setup(cmd, apply)
	if err != nil {
		return err
	}
	defer e.close()

	store, err := e.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	client := newClient(e.cfg, e.logger)
	run := build(e, e.harness(client))

	started := time.Now()
	e.logger.Info("scenario starting", zap.String("scenario", cmd.Name()), zap.String("server", e.cfg.Server))

	result, err := run(cmd)
	if err != nil {
		e.logger.Error("scenario failed", zap.String("scenario", cmd.Name()), zap.Error(err))
		return err
	}
	e.logger.Info("scenario finished",
		zap.String("scenario", cmd.Name()),
		zap.Duration("elapsed", time.Since(started)))

	if store != nil {
		id, err := store.Save(result)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		e.logger.Info("run recorded", zap.String("id", id), zap.String("history", store.Path()))
	}

	return e.render(result, func() string { return e.fmt.FormatScenario(result) })
}
