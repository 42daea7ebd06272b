package tokens

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/metrics"
)

const (
	tokenPrefix   = "cb_"
	tokenRandLen  = 16
	issueAttempts = 8
)

// ErrExhausted means every generated string collided with an existing token.
var ErrExhausted = errors.New("could not allocate a unique token string")

type Service struct {
	store    Store
	newToken func() (string, error)
	now      func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, newToken: randomToken, now: time.Now}
}

// generate "cb_" followed by 16 random alphanumerics
func randomToken() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, tokenRandLen)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return tokenPrefix + string(out), nil
}

// Issue stores a new token for action on entityID and returns its string.
// ttl <= 0 issues a token that never expires.
func (s *Service) Issue(ctx context.Context, action Action, entityID uint64, payload Payload, ttl time.Duration) (string, error) {
	if !action.Valid() {
		return "", fmt.Errorf("unknown token action %q", action)
	}
	raw, err := encodePayload(action, payload)
	if err != nil {
		return "", err
	}

	now := s.now()
	var expiresAt *time.Time
	if ttl > 0 {
		exp := now.Add(ttl)
		expiresAt = &exp
	}

	for i := 0; i < issueAttempts; i++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		taken, err := s.store.Exists(ctx, token)
		if err != nil {
			return "", err
		}
		if taken {
			metrics.RecordCollision()
			continue
		}

		rec := &CallbackToken{
			Token:     token,
			Action:    action,
			EntityID:  entityID,
			Payload:   raw,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		err = s.store.Create(ctx, rec)
		if errors.Is(err, ErrDuplicateToken) {
			// inserted by someone else between Exists and Create
			metrics.RecordCollision()
			continue
		}
		if err != nil {
			return "", err
		}
		metrics.RecordIssued(string(action))
		return token, nil
	}

	logging.FromContext(ctx).Error().
		Str("action", string(action)).
		Int("attempts", issueAttempts).
		Msg("token issue exhausted")
	return "", ErrExhausted
}

// Grant is a redeemed token.
type Grant struct {
	Token    string
	Action   Action
	EntityID uint64
	payload  []byte
}

// Paginate decodes the PAGINATE payload.
func (g *Grant) Paginate() (Paginate, error) {
	var p Paginate
	if g.Action != ActionPaginate {
		return p, fmt.Errorf("token action %s has no paginate payload", g.Action)
	}
	if len(g.payload) == 0 {
		return p, errors.New("paginate token without payload")
	}
	if err := json.Unmarshal(g.payload, &p); err != nil {
		return p, fmt.Errorf("decode paginate payload: %w", err)
	}
	return p, nil
}

// Consume resolves token. Unknown and expired tokens yield a nil grant and no
// error. With oneTime the record is removed so no later call can redeem it.
func (s *Service) Consume(ctx context.Context, token string, oneTime bool) (*Grant, error) {
	var (
		rec *CallbackToken
		err error
	)
	if oneTime {
		rec, err = s.store.Take(ctx, token)
	} else {
		rec, err = s.store.Get(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		metrics.RecordConsume("miss")
		return nil, nil
	}

	if rec.Expired(s.now()) {
		if !oneTime {
			if err := s.store.Delete(ctx, token); err != nil {
				return nil, err
			}
		}
		metrics.RecordConsume("expired")
		return nil, nil
	}

	metrics.RecordConsume("hit")
	return &Grant{
		Token:    rec.Token,
		Action:   rec.Action,
		EntityID: rec.EntityID,
		payload:  rec.Payload,
	}, nil
}
