package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/chatload/internal/bench"
	"github.com/wesleyorama2/chatload/internal/chat"
	"github.com/wesleyorama2/chatload/internal/config"
	"github.com/wesleyorama2/chatload/internal/logging"
	"github.com/wesleyorama2/chatload/internal/output"
	"github.com/wesleyorama2/chatload/internal/storage"
)

// newClient builds the client every command talks through. Tests swap it for
// an in-memory service.
var newClient = func(cfg *config.Config, logger *zap.Logger) chat.Client {
	return chat.NewHTTPClient(cfg.Server, chat.HTTPOptions{
		Timeout:            cfg.Client.RequestTimeout.Std(),
		InsecureSkipVerify: cfg.Client.InsecureSkipVerify,
		MaxConnsPerHost:    cfg.Client.MaxConnsPerHost,
		UserAgent:          cfg.Client.UserAgent,
		Logger:             logger.Named("client"),
	})
}

// env is everything a command needs once flags and config are resolved.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	format output.OutputFormat
	fmt    *output.Formatter
	out    io.Writer
}

func (e *env) close() {
	_ = e.logger.Sync()
}

// setup loads the configuration, applies the persistent flags and builds the
// logger and formatter. apply, when non-nil, lets a subcommand copy its own
// flags into the configuration before validation.
func setup(cmd *cobra.Command, apply func(*config.Config) error) (*env, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if flags.Changed("server") {
		cfg.Server, _ = flags.GetString("server")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("dev-log") {
		cfg.Log.Development, _ = flags.GetBool("dev-log")
	}
	if flags.Changed("history") {
		cfg.History.Path, _ = flags.GetString("history")
	}
	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	name, _ := flags.GetString("output")
	if asJSON, _ := flags.GetBool("json"); asJSON {
		name = string(output.FormatJSON)
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	verbose, _ := flags.GetBool("verbose")
	noColor, _ := flags.GetBool("no-color")

	return &env{
		cfg:    cfg,
		logger: logger,
		format: format,
		fmt:    output.NewFormatter(verbose, noColor || !output.ColorEnabled(out)),
		out:    out,
	}, nil
}

// runContext derives the run context, applying the configured timeout.
func (e *env) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if d := e.cfg.Timeout.Std(); d > 0 {
		return context.WithTimeout(parent, d)
	}
	return context.WithCancel(parent)
}

func (e *env) harness(client chat.Client) *bench.Harness {
	cfg := e.cfg
	return &bench.Harness{
		Provisioner: &bench.Provisioner{
			Client:        client,
			Secret:        cfg.Secret,
			DisplayName:   cfg.DisplayName,
			GuildName:     cfg.Provisioning.GuildName,
			ChannelName:   cfg.Provisioning.ChannelName,
			CreateChannel: cfg.Provisioning.CreateChannel,
			Logger:        e.logger.Named("provision"),
		},
		IdentityPattern: cfg.IdentityPattern,
		Concurrency:     cfg.Provisioning.Concurrency,
		Logger:          e.logger.Named("bench"),
	}
}

// openHistory opens the configured store, or returns nil when history is off.
func (e *env) openHistory() (*storage.Store, error) {
	if e.cfg.History.Path == "" {
		return nil, nil
	}
	return storage.Open(e.cfg.History.Path)
}

// render writes v as text via textFn, or encodes it for json and yaml.
func (e *env) render(v interface{}, textFn func() string) error {
	if e.format == output.FormatText {
		_, err := io.WriteString(e.out, textFn())
		return err
	}
	return output.Encode(e.out, e.format, v)
}
