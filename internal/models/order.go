package models

type Order struct {
	OrderID  int64          `gorm:"primaryKey"`
	UserID   *int64         `gorm:"index"`
	User     *User          `gorm:"foreignKey:UserID;references:TelegramID;constraint:OnDelete:SET NULL"`
	Products []OrderProduct `gorm:"foreignKey:OrderID;references:OrderID;constraint:OnDelete:CASCADE"`
	Timestamps
}

func (Order) TableName() string { return "orders" }

// OrderProduct is a line item: one product in one order.
type OrderProduct struct {
	OrderID   int64    `gorm:"primaryKey;autoIncrement:false"`
	ProductID int64    `gorm:"primaryKey;autoIncrement:false"`
	Quantity  int      `gorm:"type:integer;not null"`
	Product   *Product `gorm:"foreignKey:ProductID;references:ProductID;constraint:OnDelete:CASCADE"`
}

func (OrderProduct) TableName() string { return "orderproducts" }
