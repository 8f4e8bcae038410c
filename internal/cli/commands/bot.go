package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"shop-bot/internal/bot"
	"shop-bot/internal/cache"
	"shop-bot/internal/database"
	"shop-bot/internal/repository"
	"shop-bot/internal/worker"
)

var skipMigrate bool

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		return withDB(ctx, func(e *env, db *gorm.DB) error {
			if e.cfg.BotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}
			admins, err := e.cfg.Admins()
			if err != nil {
				return err
			}

			if !skipMigrate {
				if err := migrate(cmd, e, db); err != nil {
					return err
				}
			}

			rdb, err := database.ConnectRedis(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()

			repo := repository.New(db)
			b, err := bot.NewBot(e.cfg.BotToken, repo, admins, e.log)
			if err != nil {
				return err
			}

			notifier := worker.NewReferralNotifier(repo, cache.NewNotifications(rdb), b.Instance, e.log)
			stopNotifier := runInBackground(ctx, notifier.Start)
			defer stopNotifier()

			return b.Run(ctx)
		})
	},
}

// runInBackground starts fn in a goroutine. The returned stop cancels fn's
// context and blocks until fn has returned.
func runInBackground(ctx context.Context, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on startup")
}
