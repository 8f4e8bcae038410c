package models

import (
	"time"
)

// Timestamps is embedded into users, products and orders. Both columns are
// filled by PostgreSQL: the default on insert and the set_updated_at trigger on update.
type Timestamps struct {
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime:false"`
}

// All lists the models in migration order.
func All() []any {
	return []any{&User{}, &Product{}, &Order{}, &OrderProduct{}}
}
