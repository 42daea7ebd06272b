package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
)

const (
	tokenKeyPrefix = "whisperbox:cb:"
	tokenSeqKey    = "whisperbox:cb:seq"
)

// TokenStore keeps callback tokens as JSON values whose key TTL matches the
// token expiry. Take uses GETDEL, so a token is handed out at most once.
type TokenStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ tokens.Store = (*TokenStore)(nil)

func (s *Store) Tokens() *TokenStore {
	return &TokenStore{client: s.client, now: time.Now}
}

func tokenKey(token string) string { return tokenKeyPrefix + token }

func (t *TokenStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := t.client.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token existence: %w", err)
	}
	return n > 0, nil
}

func (t *TokenStore) Create(ctx context.Context, rec *tokens.CallbackToken) error {
	id, err := t.client.Incr(ctx, tokenSeqKey).Result()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)

	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if rec.ExpiresAt != nil {
		ttl = rec.ExpiresAt.Sub(t.now())
		if ttl <= 0 {
			ttl = time.Millisecond
		}
	}
	ok, err := t.client.SetNX(ctx, tokenKey(rec.Token), body, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return tokens.ErrDuplicateToken
	}
	return nil
}

func (t *TokenStore) Get(ctx context.Context, token string) (*tokens.CallbackToken, error) {
	return decode(t.client.Get(ctx, tokenKey(token)).Bytes())
}

func (t *TokenStore) Take(ctx context.Context, token string) (*tokens.CallbackToken, error) {
	return decode(t.client.GetDel(ctx, tokenKey(token)).Bytes())
}

func (t *TokenStore) Delete(ctx context.Context, token string) error {
	return t.client.Del(ctx, tokenKey(token)).Err()
}

func decode(body []byte, err error) (*tokens.CallbackToken, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec tokens.CallbackToken
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode token record: %w", err)
	}
	return &rec, nil
}
