package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"

	"shop-bot/internal/models"
)

const (
	DefaultInterval = time.Minute
	DefaultLookback = 24 * time.Hour
)

type ReferralStore interface {
	GetReferralsSince(ctx context.Context, since time.Time) ([]models.User, error)
}

type ReferralMarks interface {
	MarkReferralNotified(ctx context.Context, referrerID, userID int64) (bool, error)
	ForgetReferral(ctx context.Context, referrerID, userID int64) error
}

type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// ReferralNotifier tells referrers when someone joins through their link.
// Each (referrer, user) pair is announced once.
type ReferralNotifier struct {
	Store    ReferralStore
	Marks    ReferralMarks
	Bot      Sender
	Log      zerolog.Logger
	Interval time.Duration
	Lookback time.Duration

	now func() time.Time
}

func NewReferralNotifier(store ReferralStore, marks ReferralMarks, bot Sender, log zerolog.Logger) *ReferralNotifier {
	return &ReferralNotifier{
		Store:    store,
		Marks:    marks,
		Bot:      bot,
		Log:      log.With().Str("worker", "referrals").Logger(),
		Interval: DefaultInterval,
		Lookback: DefaultLookback,
		now:      time.Now,
	}
}

// Start blocks until ctx is done.
func (n *ReferralNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.Interval)
	defer ticker.Stop()
	n.Log.Info().Dur("interval", n.Interval).Msg("referral notifier started")

	n.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			n.Log.Info().Msg("referral notifier stopped")
			return
		case <-ticker.C:
			n.RunOnce(ctx)
		}
	}
}

// RunOnce announces every referral in the lookback window not yet announced
// and returns how many messages were delivered.
func (n *ReferralNotifier) RunOnce(ctx context.Context) int {
	users, err := n.Store.GetReferralsSince(ctx, n.now().Add(-n.Lookback))
	if err != nil {
		n.Log.Error().Err(err).Msg("failed to query referrals")
		return 0
	}

	sent := 0
	for _, user := range users {
		if user.ReferrerID == nil {
			continue
		}
		referrerID := *user.ReferrerID

		fresh, err := n.Marks.MarkReferralNotified(ctx, referrerID, user.TelegramID)
		if err != nil {
			n.Log.Error().Err(err).Int64("referrer_id", referrerID).Msg("failed to mark referral")
			continue
		}
		if !fresh {
			continue
		}

		_, err = n.Bot.SendMessage(ctx, tu.Message(tu.ID(referrerID), ReferralMessage(user.Fullname)))
		if err != nil {
			n.Log.Warn().Err(err).Int64("referrer_id", referrerID).Int64("telegram_id", user.TelegramID).
				Msg("failed to send referral notification")
			if err := n.Marks.ForgetReferral(ctx, referrerID, user.TelegramID); err != nil {
				n.Log.Error().Err(err).Msg("failed to clear referral mark")
			}
			continue
		}

		sent++
		n.Log.Info().Int64("referrer_id", referrerID).Int64("telegram_id", user.TelegramID).Msg("sent referral notification")
	}
	return sent
}

func ReferralMessage(fullname string) string {
	return fmt.Sprintf("🎉 %s joined using your invite link!", fullname)
}
