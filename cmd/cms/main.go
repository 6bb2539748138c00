// Command cms runs the CMS HTTP server and its maintenance commands.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
)

// Env holds the process settings read before the service configuration.
type Env struct {
	Prefix    string `env:"CMS_ENV_PREFIX" env-default:"CMS_"`
	LogLevel  string `env:"CMS_LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"CMS_LOG_FORMAT" env-default:"text"`
}

var (
	env       Env
	serverCfg *config.ServerConfig
	logger    *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cms",
	Short: "Configuration, image style and migration tooling for the CMS",
	Long: `cms serves the config, date format, block and image style APIs and
offers offline commands for checking config objects, processing images
and reading legacy site data.

Settings come from the environment; see config.WithEnv for the keys.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(imageCmd)
}

func loadEnv(cmd *cobra.Command, args []string) error {
	if err := cleanenv.ReadEnv(&env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	l, err := newLogger(env, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv(env.Prefix))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	serverCfg = cfg
	return nil
}

func newLogger(e Env, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", e.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(e.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (use 'text' or 'json')", e.LogFormat)
}
