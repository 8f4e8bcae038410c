package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-bot/internal/models"
)

// DefaultSearchLimit caps SearchUsers when no limit is given.
const DefaultSearchLimit = 10

// AddUser inserts a user, or on a telegram_id conflict overwrites fullname
// and user_name, and returns the row as stored.
func (r *Repo) AddUser(ctx context.Context, telegramID int64, fullname, languageCode string, userName *string, referrerID *int64) (*models.User, error) {
	user := models.User{
		TelegramID:   telegramID,
		Fullname:     fullname,
		UserName:     userName,
		LanguageCode: languageCode,
		ReferrerID:   referrerID,
	}

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "telegram_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"fullname", "user_name"}),
			},
			clause.Returning{},
		).
		Create(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns nil, nil when no user has that id.
func (r *Repo) GetUserByID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAllUsers returns every user, oldest first.
func (r *Repo) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type UserFilter struct {
	LanguageCodes []string
	// UserNamePattern is matched with ILIKE, so % and _ are wildcards.
	UserNamePattern string
	Limit           int
}

// SearchUsers returns the newest users with a positive id matching f.
func (r *Repo) SearchUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Where("telegram_id > ?", 0)
	if len(f.LanguageCodes) > 0 {
		q = q.Where("language_code IN ?", f.LanguageCodes)
	}
	if f.UserNamePattern != "" {
		q = q.Where("user_name ILIKE ?", f.UserNamePattern)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var users []models.User
	if err := q.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type InvitedUser struct {
	ParentName   string
	ReferralName string
}

// SelectAllInvitedUsers pairs every referred user with its referrer.
func (r *Repo) SelectAllInvitedUsers(ctx context.Context) ([]InvitedUser, error) {
	var pairs []InvitedUser
	err := r.db.WithContext(ctx).
		Table("users AS parent").
		Select("parent.fullname AS parent_name, referral.fullname AS referral_name").
		Joins("JOIN users AS referral ON referral.referrer_id = parent.telegram_id").
		Order("parent.telegram_id, referral.telegram_id").
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// GetReferralsSince returns users with a referrer who joined at or after
// since, oldest first.
func (r *Repo) GetReferralsSince(ctx context.Context, since time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("referrer_id IS NOT NULL AND created_at >= ?", since).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
