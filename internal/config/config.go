package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	AppEnv string `koanf:"app_env" validate:"required"`

	DBUser     string `koanf:"db_user" validate:"required"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name" validate:"required"`
	DBHost     string `koanf:"db_host" validate:"required"`
	DBPort     int    `koanf:"db_port" validate:"required,min=1,max=65535"`
	DBSSLMode  string `koanf:"db_sslmode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	DBEcho     bool   `koanf:"db_echo"`

	RedisHost     string `koanf:"redis_host" validate:"required"`
	RedisPort     int    `koanf:"redis_port" validate:"required,min=1,max=65535"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"min=0"`

	BotToken string `koanf:"telegram_bot_token"`
	AdminIDs string `koanf:"admin_ids"`

	LogLevel  string `koanf:"log_level" validate:"required,oneof=trace debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"required,oneof=json console"`
}

// Default mirrors the local docker setup.
func Default() *Config {
	return &Config{
		AppEnv:     "development",
		DBUser:     "postgres",
		DBPassword: "postgres",
		DBName:     "shop_bot",
		DBHost:     "localhost",
		DBPort:     5432,
		DBSSLMode:  "disable",
		RedisHost:  "localhost",
		RedisPort:  6379,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// LoadConfig reads an optional .env file, then overlays the process
// environment on Default. Variable names are the upper-cased koanf tags.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := Default()
	known := keys()

	k := koanf.New(".")
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := cfg.Admins(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns a postgres URL for the configured database.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}, "TimeZone": {"UTC"}}.Encode(),
	}
	return u.String()
}

func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// Admins parses ADMIN_IDS, a comma separated list of telegram ids.
func (c *Config) Admins() (map[int64]bool, error) {
	admins := make(map[int64]bool)
	for _, part := range strings.Split(c.AdminIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		admins[id] = true
	}
	return admins, nil
}

func keys() map[string]struct{} {
	t := reflect.TypeOf(Config{})
	out := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" {
			out[tag] = struct{}{}
		}
	}
	return out
}
