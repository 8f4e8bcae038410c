// Package seed fills an empty database with fake users, products and orders.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"shop-bot/internal/models"
)

type Store interface {
	AddUser(ctx context.Context, telegramID int64, fullname, languageCode string, userName *string, referrerID *int64) (*models.User, error)
	AddProduct(ctx context.Context, title string, description *string, price decimal.Decimal) (*models.Product, error)
	AddOrder(ctx context.Context, userID int64) (*models.Order, error)
	AddProductToOrder(ctx context.Context, orderID, productID int64, quantity int) error
}

type Options struct {
	Users    int
	Products int
	Orders   int
	// MaxLines caps the distinct products per order.
	MaxLines int
	// ReferralRate is the chance that a user after the first has a referrer.
	ReferralRate float64
	Seed         uint64
}

func DefaultOptions() Options {
	return Options{
		Users:        20,
		Products:     10,
		Orders:       30,
		MaxLines:     3,
		ReferralRate: 0.7,
		Seed:         1,
	}
}

type Summary struct {
	Users    int
	Products int
	Orders   int
	Lines    int
}

var (
	firstNames = []string{"Ada", "Alan", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances", "Rob"}
	lastNames  = []string{"Lovelace", "Turing", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen", "Pike"}
	languages  = []string{"en", "fa", "ru", "de"}
	adjectives = []string{"Green", "Black", "Smoked", "Sweet", "Spicy", "Fresh", "Roasted", "Wild"}
	nouns      = []string{"Tea", "Coffee", "Honey", "Almonds", "Pistachios", "Saffron", "Dates", "Figs"}
)

// Run inserts the requested data through store. The same Options always
// produce the same rows.
func Run(ctx context.Context, store Store, opts Options) (Summary, error) {
	var sum Summary
	if opts.Orders > 0 && (opts.Users == 0 || opts.Products == 0) {
		return sum, fmt.Errorf("orders need at least one user and one product")
	}
	maxLines := min(max(opts.MaxLines, 1), max(opts.Products, 1))

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5eed))

	userIDs := make([]int64, 0, opts.Users)
	taken := make(map[int64]bool, opts.Users)
	for i := 0; i < opts.Users; i++ {
		id := 100_000 + rng.Int64N(900_000_000)
		for taken[id] {
			id++
		}
		taken[id] = true

		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]

		var userName *string
		if rng.IntN(2) == 0 {
			name := fmt.Sprintf("%s_%s%d", first, last, i)
			userName = &name
		}

		var referrerID *int64
		if len(userIDs) > 0 && rng.Float64() < opts.ReferralRate {
			ref := userIDs[rng.IntN(len(userIDs))]
			referrerID = &ref
		}

		user, err := store.AddUser(ctx, id, first+" "+last, languages[rng.IntN(len(languages))], userName, referrerID)
		if err != nil {
			return sum, fmt.Errorf("failed to add user %d: %w", id, err)
		}
		userIDs = append(userIDs, user.TelegramID)
		sum.Users++
	}

	productIDs := make([]int64, 0, opts.Products)
	for i := 0; i < opts.Products; i++ {
		title := fmt.Sprintf("%s %s", adjectives[rng.IntN(len(adjectives))], nouns[rng.IntN(len(nouns))])
		description := fmt.Sprintf("Batch #%d of %s.", i+1, title)
		// 1.00 .. 999.99
		price := decimal.New(100+rng.Int64N(99_900), -2)

		product, err := store.AddProduct(ctx, title, &description, price)
		if err != nil {
			return sum, fmt.Errorf("failed to add product %q: %w", title, err)
		}
		productIDs = append(productIDs, product.ProductID)
		sum.Products++
	}

	for i := 0; i < opts.Orders; i++ {
		userID := userIDs[rng.IntN(len(userIDs))]
		order, err := store.AddOrder(ctx, userID)
		if err != nil {
			return sum, fmt.Errorf("failed to add order for user %d: %w", userID, err)
		}
		sum.Orders++

		lines := 1 + rng.IntN(maxLines)
		for _, idx := range rng.Perm(len(productIDs))[:lines] {
			quantity := 1 + rng.IntN(5)
			if err := store.AddProductToOrder(ctx, order.OrderID, productIDs[idx], quantity); err != nil {
				return sum, fmt.Errorf("failed to add product %d to order %d: %w", productIDs[idx], order.OrderID, err)
			}
			sum.Lines++
		}
	}

	return sum, nil
}
