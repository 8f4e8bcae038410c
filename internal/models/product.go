package models

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   int64           `gorm:"primaryKey"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Description *string         `gorm:"type:varchar(3000)"`
	Price       decimal.Decimal `gorm:"type:decimal(16,4);not null"`
	Timestamps
}

func (Product) TableName() string { return "products" }
