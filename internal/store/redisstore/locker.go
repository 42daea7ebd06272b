package redisstore

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/whisperbox/internal/dialog"
)

const lockPrefix = "whisperbox:lock:"

// Locker is a redsync-backed dialog.Locker for running several workers.
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

var _ dialog.Locker = (*Locker)(nil)

// Locker returns a distributed lock whose hold expires after expiry, so a
// crashed worker cannot block a user forever.
func (s *Store) Locker(expiry time.Duration) *Locker {
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	return &Locker{rs: s.rs, expiry: expiry}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(lockPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1<<10),
		redsync.WithRetryDelay(25*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(uctx); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to unlock mutex")
		}
	}, nil
}
