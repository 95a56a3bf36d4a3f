package main

import (
	"fmt"
	"sort"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage spending categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		icon, _ := cmd.Flags().GetString("icon")
		color, _ := cmd.Flags().GetString("color")
		limitStr, _ := cmd.Flags().GetString("limit")

		limit := decimal.Zero
		if limitStr != "" {
			var err error
			limit, err = decimal.NewFromString(limitStr)
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", limitStr, err)
			}
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		c := budget.NewCategory(args[0], icon, color, limit)
		if err := st.CreateCategory(cmd.Context(), c); err != nil {
			return err
		}

		fmt.Printf("Created category %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		categories, err := st.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(categories, func(i, j int) bool {
			return categories[i].Name < categories[j].Name
		})

		if len(categories) == 0 {
			fmt.Println("No categories yet.")
			return nil
		}
		for _, c := range categories {
			limit := "-"
			if !c.MonthlyLimit.IsZero() {
				limit = c.MonthlyLimit.StringFixed(2)
			}
			fmt.Printf("%-36s  %-20s  limit: %s\n", c.ID, c.Name, limit)
		}
		return nil
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCategory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted category %s\n", args[0])
		return nil
	},
}

func init() {
	categoryAddCmd.Flags().String("icon", "", "category icon name")
	categoryAddCmd.Flags().String("color", "", "category color (hex)")
	categoryAddCmd.Flags().String("limit", "", "monthly budget limit")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryRmCmd)
	rootCmd.AddCommand(categoryCmd)
}
