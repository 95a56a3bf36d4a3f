package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local database and sync queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()

		pending, err := st.UnsyncedCount(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", st.Path())
		fmt.Printf("Pending changes: %d\n", pending)

		if at, ok, err := st.LastSyncedAt(ctx); err != nil {
			return err
		} else if ok {
			fmt.Printf("Last synced: %s (%v ago)\n",
				at.Local().Format(time.RFC1123), time.Since(at).Round(time.Second))
		} else {
			fmt.Println("Last synced: never")
		}

		if cfg.Remote.URL == "" {
			fmt.Println("Remote: not configured")
		} else {
			fmt.Printf("Remote: %s\n", cfg.Remote.URL)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove synced change-log entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		cutoff := time.Now().Add(-cfg.Sync.Retention)
		n, err := st.PruneSyncedChanges(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d synced change(s) older than %v\n", n, cfg.Sync.Retention)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pruneCmd)
}
