package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port string `env:"PORT" envDefault:"3000"`

	DB DatabaseConfig

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	TelegramBotToken   string        `env:"TELEGRAM_BOT_TOKEN"`
	SideChannel        string        `env:"SIDE_CHANNEL" envDefault:"telegram"`
	SideChannelTimeout time.Duration `env:"SIDE_CHANNEL_TIMEOUT" envDefault:"5s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	Limits Limits

	ProofDir          string `env:"PROOF_DIR" envDefault:"./uploads/proofs"`
	ProofMaxBytes     int64  `env:"PROOF_MAX_BYTES" envDefault:"5242880"`
	ProofMaxDimension int    `env:"PROOF_MAX_DIMENSION" envDefault:"1600"`

	BroadcastConcurrency int `env:"BROADCAST_CONCURRENCY" envDefault:"16"`

	PendingDigestCron         string `env:"PENDING_DIGEST_CRON" envDefault:"0 */30 * * * *"`
	NotificationRetentionDays int    `env:"NOTIFICATION_RETENTION_DAYS" envDefault:"90"`
}

type DatabaseConfig struct {
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        string `env:"DB_PORT" envDefault:"5432"`
	User        string `env:"DB_USER"`
	Password    string `env:"DB_PASSWORD"`
	Name        string `env:"DB_NAME"`
	SSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// Limits bound request amounts. A zero max means unbounded.
type Limits struct {
	DepositMin  decimal.Decimal `env:"DEPOSIT_MIN" envDefault:"10000"`
	DepositMax  decimal.Decimal `env:"DEPOSIT_MAX" envDefault:"0"`
	WithdrawMin decimal.Decimal `env:"WITHDRAW_MIN" envDefault:"50000"`
	WithdrawMax decimal.Decimal `env:"WITHDRAW_MAX" envDefault:"100000000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BroadcastConcurrency <= 0 {
		cfg.BroadcastConcurrency = 1
	}
	return &cfg, nil
}
