// Package app wires configuration into a ready dialog controller. Both
// binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/whisperbox/internal/config"
	"github.com/suPer8Hu/whisperbox/internal/db"
	"github.com/suPer8Hu/whisperbox/internal/dialog"
	"github.com/suPer8Hu/whisperbox/internal/links"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/notify"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/store/rabbitmq"
	"github.com/suPer8Hu/whisperbox/internal/store/redisstore"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
	"gorm.io/gorm"
)

type App struct {
	Cfg        config.Config
	DB         *gorm.DB
	Controller *dialog.Controller
	// Outbound is nil when RABBIT_URL is empty.
	Outbound *rabbitmq.Publisher
	// Redis is nil unless a Redis token store or turn lock is configured.
	Redis *redisstore.Store

	closers []func() error
}

func New(cfg config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	a.DB = gdb
	if sqlDB, err := gdb.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := db.Migrate(gdb); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var rds *redisstore.Store
	if cfg.TokenStore == "redis" || cfg.TurnLock == "redis" {
		rds, err = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rds
		a.closers = append(a.closers, rds.Close)
	}

	var tokenStore tokens.Store
	switch cfg.TokenStore {
	case "redis":
		tokenStore = rds.Tokens()
	case "memory":
		// single process only; tokens die with it
		tokenStore = tokens.NewMemoryStore()
	case "", "db":
		tokenStore = tokens.NewRepo(gdb)
	default:
		a.Close()
		return nil, fmt.Errorf("unsupported TOKEN_STORE=%q", cfg.TokenStore)
	}

	var locker dialog.Locker = dialog.NewKeyedMutex()
	if cfg.TurnLock == "redis" {
		// a lock outliving the turn deadline is never useful
		locker = rds.Locker(cfg.OpTimeout + cfg.NotifyTimeout)
	}

	var sink dialog.Notifier = notify.LogSink{}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitOutboundQueue)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rabbit publisher: %w", err)
		}
		a.Outbound = pub
		a.closers = append(a.closers, pub.Close)
		sink = notify.NewAMQPSink(pub)
	}

	userSvc := users.NewService(users.NewRepo(gdb))
	linkSvc := links.NewService(links.NewRepo(gdb))
	msgSvc := messages.NewService(messages.NewRepo(gdb), linkSvc, userSvc)

	a.Controller = dialog.NewController(dialog.Deps{
		Users:    userSvc,
		Links:    linkSvc,
		Messages: msgSvc,
		Tokens:   tokens.NewService(tokenStore),
		Sessions: session.NewStore(gdb),
		Notifier: sink,
		Locker:   locker,
	}, dialog.OptionsFromConfig(cfg))

	log.Info().
		Str("db", cfg.DBDriver).
		Str("token_store", cfg.TokenStore).
		Str("turn_lock", cfg.TurnLock).
		Bool("amqp", a.Outbound != nil).
		Msg("app wired")
	return a, nil
}

// Checks returns the dependency probes served by /ping.
func (a *App) Checks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"db": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.HealthCheck
	}
	return checks
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
