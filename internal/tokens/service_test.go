package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&CallbackToken{}))
	return db
}

// stores runs f against both Store implementations.
func stores(t *testing.T, f func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) { f(t, NewMemoryStore()) })
	t.Run("gorm", func(t *testing.T) { f(t, NewRepo(openTestDB(t))) })
}

func scripted(tokens ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(tokens) {
			return tokens[len(tokens)-1], nil
		}
		s := tokens[i]
		i++
		return s, nil
	}
}

func TestRandomToken_Shape(t *testing.T) {
	tok, err := randomToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, "cb_"))
	assert.Len(t, tok, len("cb_")+16)
	for _, r := range tok[3:] {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}
}

func TestIssueAndConsumeOnce(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)

		tok, err := svc.Issue(ctx, ActionOpenMessage, 42, nil, time.Hour)
		require.NoError(t, err)

		g, err := svc.Consume(ctx, tok, true)
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, ActionOpenMessage, g.Action)
		assert.Equal(t, uint64(42), g.EntityID)

		again, err := svc.Consume(ctx, tok, true)
		require.NoError(t, err)
		assert.Nil(t, again)
	})
}

func TestConsume_NotOneTimeLeavesRecord(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)

		tok, err := svc.Issue(ctx, ActionLinkCreate, 7, nil, time.Hour)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			g, err := svc.Consume(ctx, tok, false)
			require.NoError(t, err)
			require.NotNil(t, g)
		}
		g, err := svc.Consume(ctx, tok, true)
		require.NoError(t, err)
		require.NotNil(t, g)
	})
}

func TestConsume_UnknownIsMiss(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		g, err := NewService(store).Consume(context.Background(), "cb_doesnotexist00", true)
		require.NoError(t, err)
		assert.Nil(t, g)
	})
}

func TestConsume_ExpiredIsMissAndRemoved(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)
		now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		tok, err := svc.Issue(ctx, ActionReply, 1, nil, 30*time.Minute)
		require.NoError(t, err)

		now = now.Add(31 * time.Minute)
		g, err := svc.Consume(ctx, tok, false)
		require.NoError(t, err)
		assert.Nil(t, g)

		exists, err := store.Exists(ctx, tok)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestConsume_ExactExpiryStillValid(t *testing.T) {
	svc := NewService(NewMemoryStore())
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	tok, err := svc.Issue(context.Background(), ActionReply, 1, nil, time.Minute)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	g, err := svc.Consume(context.Background(), tok, true)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestIssue_NoTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	tok, err := svc.Issue(context.Background(), ActionOpenMessage, 1, nil, 0)
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), tok)
	require.NoError(t, err)
	assert.Nil(t, rec.ExpiresAt)

	svc.now = func() time.Time { return time.Now().AddDate(10, 0, 0) }
	g, err := svc.Consume(context.Background(), tok, true)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestIssue_RegeneratesOnCollision(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)
		svc.newToken = scripted("cb_AAAAAAAAAAAAAAAA", "cb_AAAAAAAAAAAAAAAA", "cb_BBBBBBBBBBBBBBBB")

		first, err := svc.Issue(ctx, ActionReply, 1, nil, time.Hour)
		require.NoError(t, err)
		second, err := svc.Issue(ctx, ActionReply, 2, nil, time.Hour)
		require.NoError(t, err)

		assert.Equal(t, "cb_AAAAAAAAAAAAAAAA", first)
		assert.Equal(t, "cb_BBBBBBBBBBBBBBBB", second)

		g, err := svc.Consume(ctx, first, true)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), g.EntityID)
	})
}

func TestIssue_GivesUpWhenEveryStringCollides(t *testing.T) {
	// the live record must survive; the colliding string is never overwritten
	store := NewMemoryStore()
	svc := NewService(store)
	svc.newToken = scripted("cb_CCCCCCCCCCCCCCCC")
	_, err := svc.Issue(context.Background(), ActionReply, 1, nil, time.Hour)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), ActionReply, 2, nil, time.Hour)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, store.Len())
}

// raceStore reports every token as free so Create is the only guard.
type raceStore struct {
	*MemoryStore
}

func (raceStore) Exists(context.Context, string) (bool, error) { return false, nil }

func TestIssue_InsertRaceRegenerates(t *testing.T) {
	store := raceStore{NewMemoryStore()}
	svc := NewService(store)
	svc.newToken = scripted("cb_DDDDDDDDDDDDDDDD", "cb_DDDDDDDDDDDDDDDD", "cb_EEEEEEEEEEEEEEEE")

	_, err := svc.Issue(context.Background(), ActionReply, 1, nil, time.Hour)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), ActionReply, 2, nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "cb_EEEEEEEEEEEEEEEE", second)
}

func TestIssue_RejectsMismatchedPayload(t *testing.T) {
	_, err := NewService(NewMemoryStore()).Issue(context.Background(), ActionReply, 1, Paginate{Limit: 5}, time.Hour)
	assert.Error(t, err)

	_, err = NewService(NewMemoryStore()).Issue(context.Background(), Action("BOGUS"), 1, nil, time.Hour)
	assert.Error(t, err)
}

func TestPaginatePayload_RoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)

		status := "NEW"
		slug := "abcdefghij"
		from := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
		in := Paginate{Status: &status, LinkSlug: &slug, FromTimestamp: &from, Limit: 5, Offset: 10}

		tok, err := svc.Issue(ctx, ActionPaginate, 0, in, 30*time.Minute)
		require.NoError(t, err)

		rec, err := store.Get(ctx, tok)
		require.NoError(t, err)
		var keys map[string]any
		require.NoError(t, json.Unmarshal(rec.Payload, &keys))
		for _, k := range []string{"status", "linkSlug", "fromTimestamp", "limit", "offset"} {
			assert.Contains(t, keys, k)
		}

		g, err := svc.Consume(ctx, tok, true)
		require.NoError(t, err)
		require.NotNil(t, g)
		out, err := g.Paginate()
		require.NoError(t, err)

		require.NotNil(t, out.Status)
		require.NotNil(t, out.LinkSlug)
		require.NotNil(t, out.FromTimestamp)
		assert.Equal(t, status, *out.Status)
		assert.Equal(t, slug, *out.LinkSlug)
		assert.True(t, from.Equal(*out.FromTimestamp))
		assert.Equal(t, 5, out.Limit)
		assert.Equal(t, 10, out.Offset)
	})
}

func TestPaginatePayload_NilFiltersStayNil(t *testing.T) {
	svc := NewService(NewMemoryStore())
	tok, err := svc.Issue(context.Background(), ActionPaginate, 0, Paginate{Limit: 5}, time.Minute)
	require.NoError(t, err)

	g, err := svc.Consume(context.Background(), tok, true)
	require.NoError(t, err)
	out, err := g.Paginate()
	require.NoError(t, err)
	assert.Nil(t, out.Status)
	assert.Nil(t, out.LinkSlug)
	assert.Nil(t, out.FromTimestamp)
	assert.Zero(t, out.Offset)
}

func TestGrant_PaginateOnOtherAction(t *testing.T) {
	g := &Grant{Action: ActionReply}
	_, err := g.Paginate()
	assert.Error(t, err)
}

func TestConsume_ConcurrentTakeIsExactlyOnce(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store)
		tok, err := svc.Issue(ctx, ActionRevealAuthor, 9, nil, time.Hour)
		require.NoError(t, err)

		var hits int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				g, err := svc.Consume(ctx, tok, true)
				if assert.NoError(t, err) && g != nil {
					atomic.AddInt32(&hits, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), hits)
	})
}

func TestMemoryStore_Duplicate(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Create(context.Background(), &CallbackToken{Token: "cb_x"}))
	err := m.Create(context.Background(), &CallbackToken{Token: "cb_x"})
	assert.True(t, errors.Is(err, ErrDuplicateToken))
}

func TestRepo_DuplicateMapsToErrDuplicateToken(t *testing.T) {
	r := NewRepo(openTestDB(t))
	require.NoError(t, r.Create(context.Background(), &CallbackToken{Token: "cb_y", Action: ActionReply}))
	err := r.Create(context.Background(), &CallbackToken{Token: "cb_y", Action: ActionReply})
	assert.True(t, errors.Is(err, ErrDuplicateToken))
}
