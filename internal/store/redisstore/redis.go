package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Store struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
}

// New connects to addr and verifies the connection with a ping.
func New(addr, password string, db int) (*Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address must be provided")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", addr).Msg("connected to redis")
	return NewFromClient(client), nil
}

func NewFromClient(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
