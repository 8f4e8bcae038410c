package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"shop-bot/internal/models"
)

func (r *Repo) AddOrder(ctx context.Context, userID int64) (*models.Order, error) {
	order := models.Order{UserID: &userID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repo) AddProductToOrder(ctx context.Context, orderID, productID int64, quantity int) error {
	line := models.OrderProduct{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&line).Error
}

// UserOrder is one line item of one of a user's orders.
type UserOrder struct {
	Order    models.Order
	User     models.User
	Product  models.Product
	Quantity int
}

type userOrderRow struct {
	OrderID          int64
	OrderUserID      *int64
	OrderCreatedAt   time.Time
	OrderUpdatedAt   time.Time
	TelegramID       int64
	Fullname         string
	UserName         *string
	LanguageCode     string
	ReferrerID       *int64
	UserCreatedAt    time.Time
	UserUpdatedAt    time.Time
	ProductID        int64
	Title            string
	Description      *string
	Price            decimal.Decimal
	ProductCreatedAt time.Time
	ProductUpdatedAt time.Time
	Quantity         int
}

const userOrderColumns = "orders.order_id, orders.user_id AS order_user_id, " +
	"orders.created_at AS order_created_at, orders.updated_at AS order_updated_at, " +
	"users.telegram_id, users.fullname, users.user_name, users.language_code, users.referrer_id, " +
	"users.created_at AS user_created_at, users.updated_at AS user_updated_at, " +
	"products.product_id, products.title, products.description, products.price, " +
	"products.created_at AS product_created_at, products.updated_at AS product_updated_at, " +
	"orderproducts.quantity"

// GetAllUserOrders joins orders, users, line items and products for one user.
// Orders without line items are not returned.
func (r *Repo) GetAllUserOrders(ctx context.Context, telegramID int64) ([]UserOrder, error) {
	var rows []userOrderRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(userOrderColumns).
		Joins("JOIN users ON users.telegram_id = orders.user_id").
		Joins("JOIN orderproducts ON orderproducts.order_id = orders.order_id").
		Joins("JOIN products ON products.product_id = orderproducts.product_id").
		Where("users.telegram_id = ?", telegramID).
		Order("orders.order_id, products.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]UserOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.userOrder())
	}
	return out, nil
}

func (row userOrderRow) userOrder() UserOrder {
	return UserOrder{
		Order: models.Order{
			OrderID:    row.OrderID,
			UserID:     row.OrderUserID,
			Timestamps: models.Timestamps{CreatedAt: row.OrderCreatedAt, UpdatedAt: row.OrderUpdatedAt},
		},
		User: models.User{
			TelegramID:   row.TelegramID,
			Fullname:     row.Fullname,
			UserName:     row.UserName,
			LanguageCode: row.LanguageCode,
			ReferrerID:   row.ReferrerID,
			Timestamps:   models.Timestamps{CreatedAt: row.UserCreatedAt, UpdatedAt: row.UserUpdatedAt},
		},
		Product: models.Product{
			ProductID:   row.ProductID,
			Title:       row.Title,
			Description: row.Description,
			Price:       row.Price,
			Timestamps:  models.Timestamps{CreatedAt: row.ProductCreatedAt, UpdatedAt: row.ProductUpdatedAt},
		},
		Quantity: row.Quantity,
	}
}
