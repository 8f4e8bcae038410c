package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"shop-bot/internal/config"
	"shop-bot/internal/database"
	"shop-bot/internal/logger"
	"shop-bot/internal/repository"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "shopbot",
	Short: "Telegram shop bot and its admin tools",
	Long: `shopbot runs the Telegram shop bot and the admin tools around its database.

Configuration is read from the environment and an optional .env file
(DB_*, REDIS_*, TELEGRAM_BOT_TOKEN, ADMIN_IDS, LOG_LEVEL, LOG_FORMAT).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output reports in JSON format")
}

// env is what every command needs before touching the database.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// withDB opens the database for fn and always releases it afterwards.
func withDB(ctx context.Context, fn func(e *env, db *gorm.DB) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	db, err := database.ConnectPostgres(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			e.log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	return fn(e, db)
}

func withRepo(ctx context.Context, fn func(e *env, repo *repository.Repo) error) error {
	return withDB(ctx, func(e *env, db *gorm.DB) error {
		return fn(e, repository.New(db))
	})
}
