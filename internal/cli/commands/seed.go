package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"shop-bot/internal/cli/output"
	"shop-bot/internal/repository"
	"shop-bot/internal/seed"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, products and orders",
	Long: `Insert fake data for local development. The same --seed always
produces the same data, so run it against an empty database.

Examples:
  shopbot seed
  shopbot seed --users 100 --products 25 --orders 300 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd.Context(), func(e *env, repo *repository.Repo) error {
			sum, err := seed.Run(cmd.Context(), repo, seedOpts)
			if err != nil {
				return fmt.Errorf("failed to seed database: %w", err)
			}
			e.log.Info().Int("users", sum.Users).Int("products", sum.Products).Int("orders", sum.Orders).Msg("seeded database")
			output.Success("Inserted %d users, %d products, %d orders with %d line items",
				sum.Users, sum.Products, sum.Orders, sum.Lines)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of users")
	seedCmd.Flags().IntVar(&seedOpts.Products, "products", seedOpts.Products, "Number of products")
	seedCmd.Flags().IntVar(&seedOpts.Orders, "orders", seedOpts.Orders, "Number of orders")
	seedCmd.Flags().IntVar(&seedOpts.MaxLines, "max-lines", seedOpts.MaxLines, "Maximum distinct products per order")
	seedCmd.Flags().Float64Var(&seedOpts.ReferralRate, "referral-rate", seedOpts.ReferralRate, "Share of users that have a referrer")
	seedCmd.Flags().Uint64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "Random seed")
}
