// main.go
//
// Command guess-the-entry runs the game server.
//
// Subcommands:
//   - serve:   HTTP API (default when no subcommand is given).
//   - inspect: read one player's persisted document through the integrity
//     checks and print it.
//
// Configuration comes from the environment (see internal/config).

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/config"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/httpserver"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/scoreboard"
)

var (
	inspectPlayer string
	inspectFormat string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "guess-the-entry",
		Short:         "Chinese entry-guessing game server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServeCmd,
	}
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInspectCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a player's persisted state after integrity checks",
		Args:  cobra.NoArgs,
		RunE:  runInspectCmd,
	}
	cmd.Flags().StringVar(&inspectPlayer, "player", "", "player id (uuid)")
	cmd.Flags().StringVar(&inspectFormat, "format", "json", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

// setup loads configuration and configures the global logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.LogSummary()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	srv := httpserver.New(httpserver.Config{
		Backend:       backend,
		Generator:     gen,
		State:         stateOptions(cfg),
		Engine:        engineOptions(cfg),
		ClientOrigin:  cfg.ClientOrigin,
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      tokenTTL(cfg),
		CookieName:    cfg.CookieName,
		SecureCookies: cfg.Production(),
	})

	log.Info().Str("port", cfg.Port).Msg("starting guess-the-entry server")
	// Start returns only after in-flight requests drain, before the deferred
	// backend close runs.
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// inspectOutput is what inspect prints.
type inspectOutput struct {
	Player   string             `json:"player" yaml:"player"`
	Document *persist.Document  `json:"document" yaml:"document"`
	Summary  scoreboard.Summary `json:"summary" yaml:"summary"`
}

func runInspectCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	opts := stateOptions(cfg)
	opts.Prefix = "player:" + inspectPlayer + ":"
	d, err := persist.New(backend, opts).Peek(ctx)
	if err != nil {
		return err
	}
	return writeInspect(cmd.OutOrStdout(), inspectFormat, inspectOutput{
		Player:   inspectPlayer,
		Document: d,
		Summary:  scoreboard.Summarize(d.Stats),
	})
}

func writeInspect(w io.Writer, format string, out inspectOutput) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(out)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
