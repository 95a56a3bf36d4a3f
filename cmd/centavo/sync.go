package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one push+pull sync cycle",
	Long: `Synchronize the local database with the configured backend.

This performs one full cycle:
  1. Pushes every pending local change, oldest first
  2. Pulls remote changes since the last sync and merges them
     under last-write-wins
  3. Advances the sync high-water mark

Without a configured account the command is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			return err
		}

		result, err := engine.Sync(cmd.Context())
		if err != nil {
			return err
		}

		if result.NoIdentity {
			fmt.Println("No account configured; nothing to sync.")
			return nil
		}

		fmt.Printf("Sync complete in %v\n", result.Duration.Round(time.Millisecond))
		fmt.Printf("   Pushed:  %d\n", result.Pushed)
		fmt.Printf("   Pulled:  %d\n", result.Pulled)
		fmt.Printf("   Skipped: %d\n", result.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
