package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Manage recurring transaction templates",
}

var recurringAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Create a recurring transaction template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}

		kindStr, _ := cmd.Flags().GetString("kind")
		kind, err := budget.ParseKind(kindStr)
		if err != nil {
			return err
		}
		freqStr, _ := cmd.Flags().GetString("every")
		freq, err := budget.ParseFrequency(freqStr)
		if err != nil {
			return err
		}
		categoryID, _ := cmd.Flags().GetString("category")
		note, _ := cmd.Flags().GetString("note")
		startStr, _ := cmd.Flags().GetString("start")

		nextRun := time.Now().UTC()
		if startStr != "" {
			nextRun, err = time.Parse("2006-01-02", startStr)
			if err != nil {
				return fmt.Errorf("invalid start %q (want YYYY-MM-DD): %w", startStr, err)
			}
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		r := budget.NewRecurringTransaction(categoryID, kind, amount, note, freq, nextRun)
		if err := st.CreateRecurring(cmd.Context(), r); err != nil {
			return err
		}

		fmt.Printf("Created %s recurring %s of %s, next run %s (%s)\n",
			freq, kind, amount.StringFixed(2), r.NextRunAt.Format("2006-01-02"), r.ID)
		return nil
	},
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		templates, err := st.ListRecurring(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(templates, func(i, j int) bool {
			return templates[i].NextRunAt.Before(templates[j].NextRunAt)
		})

		if len(templates) == 0 {
			fmt.Println("No recurring templates yet.")
			return nil
		}
		for _, r := range templates {
			fmt.Printf("%-36s  %-8s  %10s  next: %s\n",
				r.ID, r.Frequency, r.Amount.StringFixed(2), r.NextRunAt.Format("2006-01-02"))
		}
		return nil
	},
}

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Materialize all due recurring templates into transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		created, err := st.RunDueRecurring(cmd.Context(), time.Now().UTC())
		if err != nil {
			return err
		}

		if len(created) == 0 {
			fmt.Println("Nothing due.")
			return nil
		}
		for _, t := range created {
			fmt.Printf("Created %s of %s for %s (%s)\n",
				t.Kind, t.Amount.StringFixed(2), t.OccurredAt.Format("2006-01-02"), t.ID)
		}
		return nil
	},
}

var recurringRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a recurring template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteRecurring(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted recurring template %s\n", args[0])
		return nil
	},
}

func init() {
	recurringAddCmd.Flags().String("kind", "expense", "transaction kind (expense|income)")
	recurringAddCmd.Flags().String("every", "monthly", "frequency (daily|weekly|monthly)")
	recurringAddCmd.Flags().String("category", "", "category ID")
	recurringAddCmd.Flags().String("note", "", "free-form note")
	recurringAddCmd.Flags().String("start", "", "first run date (YYYY-MM-DD, default today)")

	recurringCmd.AddCommand(recurringAddCmd)
	recurringCmd.AddCommand(recurringListCmd)
	recurringCmd.AddCommand(recurringRunCmd)
	recurringCmd.AddCommand(recurringRmCmd)
	rootCmd.AddCommand(recurringCmd)
}
