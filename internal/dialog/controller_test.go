package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/whisperbox/internal/config"
	"github.com/suPer8Hu/whisperbox/internal/db"
	"github.com/suPer8Hu/whisperbox/internal/links"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) last(t *testing.T) Notification {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent)
	return r.sent[len(r.sent)-1]
}

type harness struct {
	db       *gorm.DB
	ctrl     *Controller
	store    *tokens.MemoryStore
	sessions *session.Store
	users    *users.Service
	links    *links.Service
	msgs     *messages.Service
	notes    *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	h := &harness{
		db:       gdb,
		store:    tokens.NewMemoryStore(),
		sessions: session.NewStore(gdb),
		users:    users.NewService(users.NewRepo(gdb)),
		links:    links.NewService(links.NewRepo(gdb)),
		notes:    &recordingNotifier{},
	}
	h.msgs = messages.NewService(messages.NewRepo(gdb), h.links, h.users)
	h.ctrl = NewController(Deps{
		Users:    h.users,
		Links:    h.links,
		Messages: h.msgs,
		Tokens:   tokens.NewService(h.store),
		Sessions: h.sessions,
		Notifier: h.notes,
	}, Options{
		BotUsername: "whisper_bot",
		PageSize:    5,
		TTL: config.TokenTTLs{
			Notification: 24 * time.Hour,
			Message:      time.Hour,
			LinkToggle:   time.Hour,
			LinkCreate:   30 * time.Minute,
			Paginate:     30 * time.Minute,
		},
	})
	return h
}

func profile(ext int64) users.Profile {
	return users.Profile{ExternalID: ext, Username: fmt.Sprintf("user%d", ext), Language: "en"}
}

func (h *harness) user(t *testing.T, ext int64) *users.User {
	t.Helper()
	u, err := h.users.Touch(context.Background(), profile(ext))
	require.NoError(t, err)
	return u
}

func (h *harness) link(t *testing.T, ownerExt int64, prompt *string) *links.Link {
	t.Helper()
	owner := h.user(t, ownerExt)
	l, err := h.links.Create(context.Background(), owner.ID, "inbox", prompt)
	require.NoError(t, err)
	return l
}

func (h *harness) step(t *testing.T, ext int64) session.Step {
	t.Helper()
	u := h.user(t, ext)
	st, err := h.sessions.Get(context.Background(), u.ID)
	require.NoError(t, err)
	return st
}

// control finds the first control whose label is label.
func control(t *testing.T, r *Reply, label string) Control {
	t.Helper()
	for _, row := range r.Rows {
		for _, c := range row {
			if c.Label == label {
				return c
			}
		}
	}
	t.Fatalf("no control %q in %+v", label, r.Rows)
	return Control{}
}

func hasControl(r *Reply, label string) bool {
	for _, row := range r.Rows {
		for _, c := range row {
			if c.Label == label {
				return true
			}
		}
	}
	return false
}

// sendAnonymous walks a sender through the deep link wizard.
func (h *harness) sendAnonymous(t *testing.T, senderExt int64, slug string, allow bool, text string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.ctrl.HandleDeepLink(ctx, profile(senderExt), slug)
	require.NoError(t, err)
	choice := tr(LangEN, "reveal_deny")
	if allow {
		choice = tr(LangEN, "reveal_allow")
	}
	_, err = h.ctrl.HandleText(ctx, profile(senderExt), choice)
	require.NoError(t, err)
	r, err := h.ctrl.HandleText(ctx, profile(senderExt), text)
	require.NoError(t, err)
	require.Equal(t, tr(LangEN, "message_sent"), r.Text)
}

func TestDeepLinkToSend_FullScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	prompt := "tell me a secret"
	l := h.link(t, 1, &prompt)

	r, err := h.ctrl.HandleDeepLink(ctx, profile(2), l.Slug)
	require.NoError(t, err)
	assert.Contains(t, r.Text, prompt)
	assert.Equal(t, []string{tr(LangEN, "reveal_allow"), tr(LangEN, "reveal_deny")}, r.Choices)
	assert.Equal(t, session.AwaitRevealChoice{LinkSlug: l.Slug}, h.step(t, 2))

	r, err = h.ctrl.HandleText(ctx, profile(2), tr(LangEN, "reveal_allow"))
	require.NoError(t, err)
	assert.True(t, r.RemoveKeyboard)
	allowed := true
	assert.Equal(t, session.AwaitMessageText{LinkSlug: l.Slug, RevealAllowed: &allowed}, h.step(t, 2))

	r, err = h.ctrl.HandleText(ctx, profile(2), "hello")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "message_sent"), r.Text)
	assert.Nil(t, h.step(t, 2))

	var msgs []messages.Message
	require.NoError(t, h.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.True(t, msgs[0].IsRevealAllowed)
	assert.False(t, msgs[0].IsRevealed)
	assert.Equal(t, h.user(t, 2).ID, *msgs[0].SenderUserID)

	// exactly one OPEN_MESSAGE token, pushed to the recipient
	assert.Equal(t, 1, h.store.Len())
	n := h.notes.last(t)
	assert.Equal(t, int64(1), n.ChatID)
	assert.Contains(t, n.Reply.Text, "hello")
	open := control(t, &n.Reply, tr(LangEN, "open_message"))
	rec, err := h.store.Get(ctx, open.Token)
	require.NoError(t, err)
	assert.Equal(t, tokens.ActionOpenMessage, rec.Action)
	assert.Equal(t, msgs[0].ID, rec.EntityID)

	got, err := h.msgs.Get(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, messages.StatusDelivered, got.Status)
}

func TestOpenAndReveal_Scenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, true, "hello")
	pushed := h.notes.last(t)
	open := control(t, &pushed.Reply, tr(LangEN, "open_message"))

	r, err := h.ctrl.HandleToken(ctx, profile(1), open.Token)
	require.NoError(t, err)
	assert.True(t, r.Edit)
	assert.Contains(t, r.Text, "hello")
	reveal := control(t, r, tr(LangEN, "reveal_button"))
	reply := control(t, r, tr(LangEN, "reply_button"))
	assert.NotEmpty(t, reply.Token)

	var m messages.Message
	require.NoError(t, h.db.First(&m).Error)
	assert.Equal(t, messages.StatusRead, m.Status)

	r, err = h.ctrl.HandleToken(ctx, profile(1), reveal.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "author", "user2"), r.Text)
	contact := control(t, r, tr(LangEN, "contact_button"))
	assert.Equal(t, "tg://user?id=2", contact.URL)

	require.NoError(t, h.db.First(&m, m.ID).Error)
	assert.True(t, m.IsRevealed)

	r, err = h.ctrl.HandleToken(ctx, profile(1), reveal.Token)
	require.NoError(t, err)
	assert.True(t, r.Stale)
}

func TestOpen_RevealNotAllowedHasNoRevealControl(t *testing.T) {
	h := newHarness(t)
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, false, "psst")
	pushed := h.notes.last(t)
	open := control(t, &pushed.Reply, tr(LangEN, "open_message"))

	r, err := h.ctrl.HandleToken(context.Background(), profile(1), open.Token)
	require.NoError(t, err)
	assert.True(t, hasControl(r, tr(LangEN, "reply_button")))
	assert.False(t, hasControl(r, tr(LangEN, "reveal_button")))
}

func TestOpen_ByStrangerIsRefused(t *testing.T) {
	h := newHarness(t)
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, true, "hello")
	pushed := h.notes.last(t)
	open := control(t, &pushed.Reply, tr(LangEN, "open_message"))

	r, err := h.ctrl.HandleToken(context.Background(), profile(3), open.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "message_unavailable"), r.Alert)

	var m messages.Message
	require.NoError(t, h.db.First(&m).Error)
	assert.Equal(t, messages.StatusDelivered, m.Status)
}

func TestDeepLink_InvalidKeepsState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	u := h.user(t, 2)
	require.NoError(t, h.sessions.Set(ctx, u.ID, session.AwaitLinkLabel{}))

	r, err := h.ctrl.HandleDeepLink(ctx, profile(2), "nosuchslug")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "invalid_link"), r.Text)
	assert.Equal(t, session.AwaitLinkLabel{}, h.step(t, 2))

	_, err = h.links.Toggle(ctx, h.user(t, 1).ID, l.ID)
	require.NoError(t, err)
	r, err = h.ctrl.HandleDeepLink(ctx, profile(2), l.Slug)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "invalid_link"), r.Text)
	assert.Equal(t, session.AwaitLinkLabel{}, h.step(t, 2))
}

func TestRevealChoice_OtherInputReprompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	_, err := h.ctrl.HandleDeepLink(ctx, profile(2), l.Slug)
	require.NoError(t, err)

	r, err := h.ctrl.HandleText(ctx, profile(2), "maybe?")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "choose_option"), r.Text)
	assert.Len(t, r.Choices, 2)
	assert.Equal(t, session.AwaitRevealChoice{LinkSlug: l.Slug}, h.step(t, 2))

	// the Russian label works for an English speaker too
	_, err = h.ctrl.HandleText(ctx, profile(2), tr(LangRU, "reveal_deny"))
	require.NoError(t, err)
	denied := false
	assert.Equal(t, session.AwaitMessageText{LinkSlug: l.Slug, RevealAllowed: &denied}, h.step(t, 2))
}

func TestMessageText_OutOfBoundsReprompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	_, err := h.ctrl.HandleDeepLink(ctx, profile(2), l.Slug)
	require.NoError(t, err)
	_, err = h.ctrl.HandleText(ctx, profile(2), tr(LangEN, "reveal_allow"))
	require.NoError(t, err)

	r, err := h.ctrl.HandleText(ctx, profile(2), strings.Repeat("x", 2001))
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "message_length"), r.Text)
	assert.IsType(t, session.AwaitMessageText{}, h.step(t, 2))

	var n int64
	require.NoError(t, h.db.Model(&messages.Message{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMessageText_MissingKeysExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, 2)
	require.NoError(t, h.sessions.Set(ctx, u.ID, session.AwaitMessageText{LinkSlug: "abc"}))

	r, err := h.ctrl.HandleText(ctx, profile(2), "hello")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "session_expired"), r.Text)
	assert.Nil(t, h.step(t, 2))
}

func TestNoState_GenericPrompt(t *testing.T) {
	h := newHarness(t)
	r, err := h.ctrl.HandleText(context.Background(), profile(5), "hi")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "send_prompt"), r.Text)
	assert.Nil(t, h.step(t, 5))
}

func TestReplyFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, false, "hello")
	pushed := h.notes.last(t)
	open := control(t, &pushed.Reply, tr(LangEN, "open_message"))

	r, err := h.ctrl.HandleToken(ctx, profile(1), open.Token)
	require.NoError(t, err)
	reply := control(t, r, tr(LangEN, "reply_button"))

	r, err = h.ctrl.HandleToken(ctx, profile(1), reply.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "reply_prompt"), r.Text)

	var m messages.Message
	require.NoError(t, h.db.First(&m).Error)
	assert.Equal(t, session.AwaitReplyText{ReplyToMessageID: m.ID}, h.step(t, 1))

	r, err = h.ctrl.HandleText(ctx, profile(1), "")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "reply_length"), r.Text)

	r, err = h.ctrl.HandleText(ctx, profile(1), "thank you")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "reply_sent"), r.Text)
	assert.Nil(t, h.step(t, 1))

	var tms []messages.ThreadMessage
	require.NoError(t, h.db.Find(&tms).Error)
	require.Len(t, tms, 1)
	assert.Equal(t, h.user(t, 2).ID, tms[0].ToUserID)

	n := h.notes.last(t)
	assert.Equal(t, int64(2), n.ChatID)
	assert.Contains(t, n.Reply.Text, "thank you")
}

func TestLinkWizard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.ctrl.HandleCommand(ctx, profile(1), "/links", nil)
	require.NoError(t, err)
	assert.Contains(t, r.Text, tr(LangEN, "no_links"))
	create := control(t, r, tr(LangEN, "create_link_button"))

	r, err = h.ctrl.HandleToken(ctx, profile(1), create.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "enter_link_label"), r.Text)
	assert.Equal(t, session.AwaitLinkLabel{}, h.step(t, 1))

	r, err = h.ctrl.HandleText(ctx, profile(1), "   ")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "enter_link_label"), r.Text)

	_, err = h.ctrl.HandleText(ctx, profile(1), " Friends ")
	require.NoError(t, err)
	assert.Equal(t, session.AwaitLinkPrompt{Label: "Friends"}, h.step(t, 1))

	r, err = h.ctrl.HandleText(ctx, profile(1), "-")
	require.NoError(t, err)
	assert.Nil(t, h.step(t, 1))

	owned, err := h.links.ListByOwner(ctx, h.user(t, 1).ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Friends", owned[0].Label)
	assert.Nil(t, owned[0].Prompt)
	assert.Contains(t, r.Text, "https://t.me/whisper_bot?start=link_"+owned[0].Slug)
}

func TestLinkToggle_OwnerOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)

	r, err := h.ctrl.HandleCommand(ctx, profile(1), "links", nil)
	require.NoError(t, err)
	toggle := control(t, r, tr(LangEN, "toggle_button", l.Label))

	r, err = h.ctrl.HandleToken(ctx, profile(9), toggle.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "link_not_found"), r.Alert)
	got, err := h.links.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	r, err = h.ctrl.HandleCommand(ctx, profile(1), "links", nil)
	require.NoError(t, err)
	toggle = control(t, r, tr(LangEN, "toggle_button", l.Label))
	r, err = h.ctrl.HandleToken(ctx, profile(1), toggle.Token)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "link_toggled_off"), r.Alert)
	assert.True(t, r.Edit)
	assert.Contains(t, r.Text, "⏸ inbox")
}

func TestDeleteLink_OwnerOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)

	r, err := h.ctrl.HandleCommand(ctx, profile(9), "/delete", []string{l.Slug})
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "link_not_found"), r.Text)

	r, err = h.ctrl.HandleCommand(ctx, profile(1), "delete", nil)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "delete_usage"), r.Text)

	r, err = h.ctrl.HandleCommand(ctx, profile(1), "delete", []string{l.Slug})
	require.NoError(t, err)
	assert.Contains(t, r.Text, tr(LangEN, "link_deleted", l.Label))
	assert.Contains(t, r.Text, tr(LangEN, "no_links"))

	got, err := h.links.FindBySlug(ctx, l.Slug)
	require.NoError(t, err)
	assert.Nil(t, got)

	// a deleted link no longer accepts messages
	r, err = h.ctrl.HandleDeepLink(ctx, profile(2), l.Slug)
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "invalid_link"), r.Text)
	assert.Nil(t, h.step(t, 2))
}

func TestPagination_SevenMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	for i := 0; i < 7; i++ {
		h.sendAnonymous(t, 2, l.Slug, false, fmt.Sprintf("m%d", i))
	}

	r, err := h.ctrl.HandleCommand(ctx, profile(1), "messages", nil)
	require.NoError(t, err)
	opens := 0
	for i := 1; i <= 7; i++ {
		if hasControl(r, tr(LangEN, "open_message_n", i)) {
			opens++
		}
	}
	assert.Equal(t, 5, opens)
	assert.False(t, hasControl(r, tr(LangEN, "page_prev")))
	next := control(t, r, tr(LangEN, "page_next"))

	rec, err := h.store.Get(ctx, next.Token)
	require.NoError(t, err)
	pg := decodePaginate(t, rec)
	assert.Equal(t, 5, pg.Offset)
	assert.Equal(t, 5, pg.Limit)

	r, err = h.ctrl.HandleToken(ctx, profile(1), next.Token)
	require.NoError(t, err)
	assert.True(t, r.Edit)
	assert.False(t, hasControl(r, tr(LangEN, "page_next")))
	prev := control(t, r, tr(LangEN, "page_prev"))
	assert.True(t, hasControl(r, tr(LangEN, "open_message_n", 1)))
	assert.True(t, hasControl(r, tr(LangEN, "open_message_n", 2)))

	rec, err = h.store.Get(ctx, prev.Token)
	require.NoError(t, err)
	assert.Equal(t, 0, decodePaginate(t, rec).Offset)

	// the next control was one-time
	r, err = h.ctrl.HandleToken(ctx, profile(1), next.Token)
	require.NoError(t, err)
	assert.True(t, r.Stale)
}

func decodePaginate(t *testing.T, rec *tokens.CallbackToken) tokens.Paginate {
	t.Helper()
	require.Equal(t, tokens.ActionPaginate, rec.Action)
	var p tokens.Paginate
	require.NoError(t, json.Unmarshal(rec.Payload, &p))
	return p
}

func TestMessages_Filters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.link(t, 1, nil)
	foreign := h.link(t, 3, nil)
	h.sendAnonymous(t, 2, mine.Slug, false, "one")

	r, err := h.ctrl.HandleCommand(ctx, profile(1), "messages", []string{"link=" + foreign.Slug})
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "link_not_found"), r.Text)

	r, err = h.ctrl.HandleCommand(ctx, profile(1), "messages", []string{"status=read"})
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "no_messages"), r.Text)

	r, err = h.ctrl.HandleCommand(ctx, profile(1), "messages", []string{"status=delivered", "link=" + mine.Slug, "period=1d"})
	require.NoError(t, err)
	assert.Contains(t, r.Text, "one")
	assert.Contains(t, r.Text, tr(LangEN, "filter_status", "DELIVERED"))
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, false, "a")
	h.sendAnonymous(t, 3, l.Slug, false, "b")

	r, err := h.ctrl.HandleCommand(context.Background(), profile(1), "stats", nil)
	require.NoError(t, err)
	assert.Contains(t, r.Text, tr(LangEN, "stats_link_line", "inbox", 2, 2))
}

func TestUnknownToken_IsStale(t *testing.T) {
	h := newHarness(t)
	r, err := h.ctrl.HandleToken(context.Background(), profile(1), "cb_nothinghere000")
	require.NoError(t, err)
	assert.True(t, r.Stale)
	assert.Equal(t, tr(LangEN, "stale_control"), r.Alert)
}

func TestNotifyFailure_DoesNotFailTurn(t *testing.T) {
	h := newHarness(t)
	h.notes.err = errors.New("broker down")
	l := h.link(t, 1, nil)
	h.sendAnonymous(t, 2, l.Slug, true, "hello")

	var m messages.Message
	require.NoError(t, h.db.First(&m).Error)
	assert.Equal(t, messages.StatusNew, m.Status)
}

func TestStart_ClearsStateAndFollowsLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)
	u := h.user(t, 2)
	require.NoError(t, h.sessions.Set(ctx, u.ID, session.AwaitLinkPrompt{Label: "x"}))

	r, err := h.ctrl.HandleStart(ctx, profile(2), "")
	require.NoError(t, err)
	assert.Equal(t, tr(LangEN, "greeting_menu"), r.Text)
	assert.Nil(t, h.step(t, 2))

	_, err = h.ctrl.Dispatch(ctx, Event{Kind: KindStart, User: profile(2), Args: []string{"link_" + l.Slug}})
	require.NoError(t, err)
	assert.Equal(t, session.AwaitRevealChoice{LinkSlug: l.Slug}, h.step(t, 2))
}

func TestDispatch_StartWithSlugFollowsLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.link(t, 1, nil)

	_, err := h.ctrl.Dispatch(ctx, Event{Kind: KindStart, User: profile(2), Slug: l.Slug})
	require.NoError(t, err)
	assert.Equal(t, session.AwaitRevealChoice{LinkSlug: l.Slug}, h.step(t, 2))

	_, err = h.ctrl.Dispatch(ctx, Event{Kind: KindStart, User: profile(3), Slug: "link_" + l.Slug})
	require.NoError(t, err)
	assert.Equal(t, session.AwaitRevealChoice{LinkSlug: l.Slug}, h.step(t, 3))
}

func TestDispatch_RejectsBadEvents(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctrl.Dispatch(context.Background(), Event{Kind: "poke", User: profile(1)})
	assert.Error(t, err)

	_, err = h.ctrl.Dispatch(context.Background(), Event{Kind: KindText, Text: "hi"})
	assert.Error(t, err)
}

func TestRussianIsDefault(t *testing.T) {
	h := newHarness(t)
	p := profile(7)
	p.Language = ""
	r, err := h.ctrl.HandleText(context.Background(), p, "hi")
	require.NoError(t, err)
	assert.Equal(t, tr(LangRU, "send_prompt"), r.Text)
}
