package models

type User struct {
	TelegramID   int64   `gorm:"primaryKey;autoIncrement:false"`
	Fullname     string  `gorm:"type:varchar(255);not null"`
	UserName     *string `gorm:"type:varchar(255)"`
	LanguageCode string  `gorm:"type:varchar(10);not null"`
	ReferrerID   *int64  `gorm:"index"`
	Referrer     *User   `gorm:"foreignKey:ReferrerID;references:TelegramID;constraint:OnDelete:SET NULL"`
	Timestamps
}

func (User) TableName() string { return "users" }
