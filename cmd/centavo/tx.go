package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Manage transactions",
}

var txAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record a transaction",
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
		categoryID, _ := cmd.Flags().GetString("category")
		note, _ := cmd.Flags().GetString("note")
		dateStr, _ := cmd.Flags().GetString("date")

		occurredAt := time.Now().UTC()
		if dateStr != "" {
			occurredAt, err = time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
			}
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		t := budget.NewTransaction(categoryID, kind, amount, note, occurredAt)
		if err := st.CreateTransaction(cmd.Context(), t); err != nil {
			return err
		}

		fmt.Printf("Recorded %s of %s (%s)\n", kind, amount.StringFixed(2), t.ID)
		return nil
	},
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		txs, err := st.ListTransactions(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(txs, func(i, j int) bool {
			return txs[i].OccurredAt.After(txs[j].OccurredAt)
		})
		if limit > 0 && len(txs) > limit {
			txs = txs[:limit]
		}

		if len(txs) == 0 {
			fmt.Println("No transactions yet.")
			return nil
		}
		for _, t := range txs {
			sign := "-"
			if t.Kind == budget.KindIncome {
				sign = "+"
			}
			note := t.Note
			if note == "" {
				note = "(no note)"
			}
			fmt.Printf("%s  %s%10s  %s  %s\n",
				t.OccurredAt.Format("2006-01-02"), sign, t.Amount.StringFixed(2), t.ID, note)
		}
		return nil
	},
}

var txRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteTransaction(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted transaction %s\n", args[0])
		return nil
	},
}

func init() {
	txAddCmd.Flags().String("kind", "expense", "transaction kind (expense|income)")
	txAddCmd.Flags().String("category", "", "category ID")
	txAddCmd.Flags().String("note", "", "free-form note")
	txAddCmd.Flags().String("date", "", "date the transaction occurred (YYYY-MM-DD, default today)")

	txListCmd.Flags().Int("limit", 0, "show at most N transactions (0 = all)")

	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txRmCmd)
	rootCmd.AddCommand(txCmd)
}
