package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-bot/internal/models"
)

func (r *Repo) AddProduct(ctx context.Context, title string, description *string, price decimal.Decimal) (*models.Product, error) {
	product := models.Product{
		Title:       title,
		Description: description,
		Price:       price,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repo) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductByID returns nil, nil when no product has that id.
func (r *Repo) GetProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
