package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// DB_DRIVER selects the gorm dialect: "sqlite" (local, tests) or "mysql".
	// mysql DSN demo:
	// app:apppass@tcp(127.0.0.1:3306)/whisperbox?charset=utf8mb4&parseTime=true&loc=Local
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"file:whisperbox.db?_pragma=busy_timeout(5000)"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// TOKEN_STORE is "db", "redis" or "memory" (single process). TURN_LOCK is
	// "local" or "redis".
	TokenStore string `env:"TOKEN_STORE" envDefault:"db"`
	TurnLock   string `env:"TURN_LOCK" envDefault:"local"`

	// rabbitMQ; an empty URL disables the AMQP notification sink.
	RabbitURL           string `env:"RABBIT_URL"`
	RabbitInboundQueue  string `env:"RABBIT_INBOUND_QUEUE" envDefault:"bot.inbound"`
	RabbitOutboundQueue string `env:"RABBIT_OUTBOUND_QUEUE" envDefault:"bot.outbound"`
	WorkerConcurrency   int    `env:"WORKER_CONCURRENCY" envDefault:"2"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	BotUsername string `env:"BOT_USERNAME" envDefault:"whisperbox_bot"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	OpTimeout     time.Duration `env:"OP_TIMEOUT" envDefault:"10s"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	PageSize int `env:"MESSAGES_PAGE_SIZE" envDefault:"5"`

	Tokens TokenTTLs
}

// TokenTTLs bounds how long each kind of control stays redeemable.
type TokenTTLs struct {
	Notification time.Duration `env:"TOKEN_TTL_NOTIFICATION" envDefault:"24h"`
	Message      time.Duration `env:"TOKEN_TTL_MESSAGE" envDefault:"1h"`
	LinkToggle   time.Duration `env:"TOKEN_TTL_LINK_TOGGLE" envDefault:"1h"`
	LinkCreate   time.Duration `env:"TOKEN_TTL_LINK_CREATE" envDefault:"30m"`
	Paginate     time.Duration `env:"TOKEN_TTL_PAGINATE" envDefault:"30m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.TokenStore = strings.ToLower(strings.TrimSpace(cfg.TokenStore))
	cfg.TurnLock = strings.ToLower(strings.TrimSpace(cfg.TurnLock))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.BotUsername), "@")

	//  strict concurrency control
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 2
	}
	if cfg.WorkerConcurrency > 50 {
		cfg.WorkerConcurrency = 50
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 50 {
		cfg.PageSize = 5
	}
	return cfg, nil
}
