package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"shop-bot/internal/models"
	"shop-bot/internal/repository"
	"shop-bot/internal/storeerr"
)

const referralPrefix = "ref_"

var (
	errUsageBuy        = errors.New("usage: /buy <product_id> [quantity]")
	errUsageAddProduct = errors.New("usage: /addproduct <price> <title> | <description>")
)

// ParseReferral extracts the referrer id from a /start payload like "ref_42".
func ParseReferral(payload string) (int64, bool) {
	raw, ok := strings.CutPrefix(payload, referralPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func ReferralLink(botUsername string, telegramID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%d", botUsername, referralPrefix, telegramID)
}

// ParseBuyArgs reads "<product_id> [quantity]"; quantity defaults to 1.
func ParseBuyArgs(args []string) (productID int64, quantity int, err error) {
	if len(args) == 0 || len(args) > 2 {
		return 0, 0, errUsageBuy
	}
	productID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil || productID <= 0 {
		return 0, 0, errUsageBuy
	}
	quantity = 1
	if len(args) == 2 {
		quantity, err = strconv.Atoi(args[1])
		if err != nil || quantity <= 0 {
			return 0, 0, errors.New("quantity must be a positive number")
		}
	}
	return productID, quantity, nil
}

type newProduct struct {
	Price       decimal.Decimal
	Title       string
	Description *string
}

// ParseAddProduct reads "<price> <title> | <description>" where the
// description part is optional.
func ParseAddProduct(text string) (newProduct, error) {
	var p newProduct
	priceText, rest, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return p, errUsageAddProduct
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil || price.IsNegative() {
		return p, errUsageAddProduct
	}

	title, description, hasDescription := strings.Cut(rest, "|")
	p.Price = price
	p.Title = strings.TrimSpace(title)
	if p.Title == "" {
		return p, errUsageAddProduct
	}
	if d := strings.TrimSpace(description); hasDescription && d != "" {
		p.Description = &d
	}
	return p, nil
}

func FormatProfile(user *models.User, link string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s\n", user.Fullname)
	fmt.Fprintf(&sb, "ID: %d\n", user.TelegramID)
	if user.UserName != nil {
		fmt.Fprintf(&sb, "Username: @%s\n", *user.UserName)
	}
	fmt.Fprintf(&sb, "Language: %s\n", user.LanguageCode)
	if user.ReferrerID != nil {
		fmt.Fprintf(&sb, "Invited by: %d\n", *user.ReferrerID)
	}
	fmt.Fprintf(&sb, "Joined: %s\n", user.CreatedAt.Format("02.01.2006"))
	if link != "" {
		fmt.Fprintf(&sb, "\n🔗 Your invite link:\n%s", link)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatCatalog(products []models.Product) string {
	if len(products) == 0 {
		return "The catalog is empty."
	}
	var sb strings.Builder
	sb.WriteString("🛒 Catalog:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "\n#%d %s: %s", p.ProductID, p.Title, p.Price.StringFixed(2))
		if p.Description != nil {
			fmt.Fprintf(&sb, "\n   %s", *p.Description)
		}
	}
	sb.WriteString("\n\nOrder with /buy <product_id> [quantity]")
	return sb.String()
}

// FormatOrders groups the flattened rows by order, keeping row order.
func FormatOrders(rows []repository.UserOrder) string {
	if len(rows) == 0 {
		return "You have no orders yet."
	}

	var sb strings.Builder
	total := decimal.Zero
	var orderTotal decimal.Decimal
	current := int64(-1)

	closeOrder := func() {
		if current != -1 {
			fmt.Fprintf(&sb, "\n   Subtotal: %s\n", orderTotal.StringFixed(2))
		}
	}

	for _, row := range rows {
		if row.Order.OrderID != current {
			closeOrder()
			current = row.Order.OrderID
			orderTotal = decimal.Zero
			fmt.Fprintf(&sb, "\n📦 Order #%d (%s)", current, row.Order.CreatedAt.Format("02.01.2006 15:04"))
		}
		line := row.Product.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		orderTotal = orderTotal.Add(line)
		total = total.Add(line)
		fmt.Fprintf(&sb, "\n   %s × %d = %s", row.Product.Title, row.Quantity, line.StringFixed(2))
	}
	closeOrder()

	fmt.Fprintf(&sb, "\nTotal: %s", total.StringFixed(2))
	return strings.TrimLeft(sb.String(), "\n")
}

func FormatReferrals(pairs []repository.InvitedUser) string {
	if len(pairs) == 0 {
		return "Nobody has been invited yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🤝 Referrals (%d):\n", len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(&sb, "\n%s → %s", p.ParentName, p.ReferralName)
	}
	return sb.String()
}

// StoreErrorMessage turns a storage error into a reply for the user.
func StoreErrorMessage(err error) string {
	switch storeerr.CodeOf(err) {
	case storeerr.ForeignKeyViolation:
		return "❌ That product or order no longer exists."
	case storeerr.UniqueViolation:
		return "❌ That product is already in the order."
	case storeerr.StringTooLong:
		return "❌ Text is too long."
	case storeerr.NumericOutOfRange:
		return "❌ Number is out of range."
	default:
		return "❌ Something went wrong, please try again later."
	}
}
