// Package cache keeps short-lived bot state in Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReferralTTL bounds how long a referral notification is remembered.
const ReferralTTL = 30 * 24 * time.Hour

type Notifications struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewNotifications(rdb redis.Cmdable) *Notifications {
	return &Notifications{rdb: rdb, ttl: ReferralTTL}
}

func ReferralKey(referrerID, userID int64) string {
	return fmt.Sprintf("notified_referral_%d_%d", referrerID, userID)
}

// MarkReferralNotified records that referrerID was told about userID.
// It reports false when the mark already existed.
func (n *Notifications) MarkReferralNotified(ctx context.Context, referrerID, userID int64) (bool, error) {
	ok, err := n.rdb.SetNX(ctx, ReferralKey(referrerID, userID), "true", n.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark referral notification: %w", err)
	}
	return ok, nil
}

// ForgetReferral drops the mark so a failed delivery can be retried.
func (n *Notifications) ForgetReferral(ctx context.Context, referrerID, userID int64) error {
	if err := n.rdb.Del(ctx, ReferralKey(referrerID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear referral notification: %w", err)
	}
	return nil
}
