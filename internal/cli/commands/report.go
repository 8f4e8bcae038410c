package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shop-bot/internal/cli/output"
	"shop-bot/internal/models"
	"shop-bot/internal/repository"
)

const timeLayout = "2006-01-02 15:04:05"

var userFilter repository.UserFilter

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	Long: `List users, oldest first. With any filter flag the newest matching
users are listed instead.

Examples:
  shopbot users
  shopbot users --lang en --lang fa --name '%pouria%' --limit 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd.Context(), func(_ *env, repo *repository.Repo) error {
			var (
				users []models.User
				err   error
			)
			if filtered(cmd) {
				users, err = repo.SearchUsers(cmd.Context(), userFilter)
			} else {
				users, err = repo.GetAllUsers(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			return printUsers(users)
		})
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders <telegram_id>",
	Short: "List a user's orders, one row per line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		telegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram id %q: %w", args[0], err)
		}
		return withRepo(cmd.Context(), func(_ *env, repo *repository.Repo) error {
			rows, err := repo.GetAllUserOrders(cmd.Context(), telegramID)
			if err != nil {
				return fmt.Errorf("failed to list orders: %w", err)
			}
			return printOrders(rows)
		})
	},
}

var referralsCmd = &cobra.Command{
	Use:   "referrals",
	Short: "List who invited whom",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd.Context(), func(_ *env, repo *repository.Repo) error {
			pairs, err := repo.SelectAllInvitedUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list referrals: %w", err)
			}
			return printReferrals(pairs)
		})
	},
}

func init() {
	rootCmd.AddCommand(usersCmd, ordersCmd, referralsCmd)

	usersCmd.Flags().StringSliceVar(&userFilter.LanguageCodes, "lang", nil, "Language codes to include (repeatable)")
	usersCmd.Flags().StringVar(&userFilter.UserNamePattern, "name", "", "Case-insensitive username pattern (% and _ are wildcards)")
	usersCmd.Flags().IntVar(&userFilter.Limit, "limit", repository.DefaultSearchLimit, "Maximum number of filtered users")
}

func filtered(cmd *cobra.Command) bool {
	f := cmd.Flags()
	return f.Changed("lang") || f.Changed("name") || f.Changed("limit")
}

func printJSON(v any) error {
	enc := json.NewEncoder(output.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsers(users []models.User) error {
	if jsonOutput {
		return printJSON(users)
	}
	if len(users) == 0 {
		output.Warning("No users found")
		return nil
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.TelegramID, 10),
			u.Fullname,
			orDash(u.UserName),
			u.LanguageCode,
			idOrDash(u.ReferrerID),
			u.CreatedAt.Format(timeLayout),
		})
	}
	output.Section(fmt.Sprintf("Users (%d)", len(users)))
	output.Table([]string{"TELEGRAM ID", "NAME", "USERNAME", "LANG", "REFERRER", "CREATED AT"}, rows)
	return nil
}

func printOrders(orders []repository.UserOrder) error {
	if jsonOutput {
		return printJSON(orders)
	}
	if len(orders) == 0 {
		output.Warning("No orders found")
		return nil
	}

	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.Order.OrderID, 10),
			o.Order.CreatedAt.Format(timeLayout),
			strconv.FormatInt(o.Product.ProductID, 10),
			o.Product.Title,
			o.Product.Price.StringFixed(2),
			strconv.Itoa(o.Quantity),
		})
	}
	output.Section(fmt.Sprintf("Orders of %s", orders[0].User.Fullname))
	output.Table([]string{"ORDER", "CREATED AT", "PRODUCT", "TITLE", "PRICE", "QTY"}, rows)
	return nil
}

func printReferrals(pairs []repository.InvitedUser) error {
	if jsonOutput {
		return printJSON(pairs)
	}
	if len(pairs) == 0 {
		output.Warning("Nobody has been invited yet")
		return nil
	}

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p.ParentName, p.ReferralName})
	}
	output.Section(fmt.Sprintf("Referrals (%d)", len(pairs)))
	output.Table([]string{"INVITED BY", "USER"}, rows)
	return nil
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func idOrDash(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
