// Command centavo is the centavo budgeting CLI: local-first category,
// transaction, and recurring-transaction management backed by an embedded
// SQLite store, with bidirectional sync against a centavo backend.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/centavo-app/centavo/internal/config"
	"github.com/centavo-app/centavo/internal/remote"
	"github.com/centavo-app/centavo/internal/store"
	"github.com/centavo-app/centavo/internal/syncer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "centavo",
	Short: "Local-first personal budgeting with cloud sync",
	Long: `centavo keeps your budget on your own device, in an embedded SQLite
database, and synchronizes it bidirectionally with a centavo backend when
an account is configured. All writes land locally first; sync failures
never block usage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = newLogger(cfg)
		return nil
	},
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if cfg.Log.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		})
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openStore opens and migrates the local database.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newEngine wires a sync engine from configuration. Returns an error when
// no remote is configured; commands that can work offline should check
// cfg.Remote.URL first.
func newEngine(st *store.Store) (*syncer.Engine, error) {
	if cfg.Remote.URL == "" {
		return nil, fmt.Errorf("no remote configured (set remote.url in %s)", config.DefaultDir())
	}
	client, err := remote.NewClient(cfg.Remote.URL, cfg.Remote.Token, logger)
	if err != nil {
		return nil, err
	}
	return syncer.New(st, client, logger), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.centavo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
