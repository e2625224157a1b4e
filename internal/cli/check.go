package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/chatload/internal/config"
	"github.com/wesleyorama2/chatload/internal/conformance"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Exercise every client operation and report which behave",
		Long: `Run the conformance suite: sign in (registering if needed), then call
each client operation in turn and compare what the service returns with what
was sent. A failed step skips only the steps that depend on it.

The command exits non-zero when any step fails or is skipped.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}

	cmd.Flags().String("identity", "", "account to run the suite as (default from config)")
	cmd.Flags().Duration("event-timeout", 0, "how long to wait for a sent message's event (default from config: 5s)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, func(cfg *config.Config) error {
		flags := cmd.Flags()
		if flags.Changed("identity") {
			cfg.Conformance.Identity, _ = flags.GetString("identity")
		}
		if flags.Changed("event-timeout") {
			d, _ := flags.GetDuration("event-timeout")
			cfg.Conformance.EventTimeout = config.Duration(d)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.close()

	cc := e.cfg.Conformance
	suite := &conformance.Suite{
		Client:       newClient(e.cfg, e.logger),
		Identity:     cc.Identity,
		Secret:       e.cfg.ConformanceSecret(),
		DisplayName:  cc.DisplayName,
		GuildName:    cc.GuildName,
		EventTimeout: cc.EventTimeout.Std(),
		Logger:       e.logger.Named("conformance"),
	}

	ctx, cancel := e.runContext(cmd.Context())
	defer cancel()
	report := suite.Run(ctx)

	if err := e.render(report, func() string { return e.fmt.FormatReport(report) }); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("conformance: %d failed, %d skipped of %d steps", report.Failed(), report.Skipped(), len(report.Steps))
	}
	return nil
}
