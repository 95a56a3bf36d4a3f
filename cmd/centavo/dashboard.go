package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/centavo-app/centavo/internal/dashboard"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the standalone sync dashboard server",
	Long: `Start a WebSocket server broadcasting sync activity.

Messages include:
- sync_complete: a sync cycle finished, with push/pull counts
- sync_failed: a sync cycle errored
- stats: pending change count and last sync time

Usually the dashboard runs inside the daemon (centavo daemon
--with-dashboard); this command runs it standalone, which is mostly
useful for client development.

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Dashboard.Port
		}

		srv := dashboard.NewServer(dashboard.Config{Port: port, Logger: logger})
		if err := srv.Start(); err != nil {
			return err
		}

		fmt.Printf("Dashboard listening on %s (WebSocket endpoint /ws)\n", srv.Addr())
		fmt.Println("Press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		return srv.Stop()
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 0, "port to listen on")
	rootCmd.AddCommand(dashboardCmd)
}
