package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/centavo-app/centavo/internal/daemon"
	"github.com/centavo-app/centavo/internal/dashboard"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Keep the local database synchronized in the background.

The daemon syncs once at startup, then again after each burst of local
writes (detected by watching the database file) and on a fixed interval.
Failed syncs are retried with exponential backoff. Synced change-log
entries older than the retention window are pruned after each cycle.

With --with-dashboard, a WebSocket dashboard broadcasting sync events is
served alongside.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("with-dashboard")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			return err
		}

		if withDashboard {
			dash := dashboard.NewServer(dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: logger,
			})
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() { _ = dash.Stop() }()
			engine.SetEventSink(dashboard.NewHandler(dash, st, logger))
		}

		dcfg := daemon.DefaultConfig()
		dcfg.Interval = cfg.Sync.Interval
		dcfg.Debounce = cfg.Sync.Debounce
		dcfg.Retention = cfg.Sync.Retention
		dcfg.Logger = logger

		d, err := daemon.New(engine, st, cfg.DBPath, dcfg)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().Bool("with-dashboard", false, "serve the sync dashboard alongside the daemon")
	rootCmd.AddCommand(daemonCmd)
}
