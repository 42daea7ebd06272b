package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/config"
	"github.com/suPer8Hu/whisperbox/internal/links"
	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/metrics"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

type UserService interface {
	Touch(ctx context.Context, p users.Profile) (*users.User, error)
	Find(ctx context.Context, id uint64) (*users.User, error)
}

type LinkService interface {
	Create(ctx context.Context, ownerID uint64, label string, prompt *string) (*links.Link, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]links.Link, error)
	FindBySlug(ctx context.Context, slug string) (*links.Link, error)
	FindByID(ctx context.Context, id uint64) (*links.Link, error)
	Toggle(ctx context.Context, ownerID, linkID uint64) (*links.Link, error)
	Delete(ctx context.Context, ownerID, linkID uint64) error
}

type MessageService interface {
	Send(ctx context.Context, in messages.SendInput) (*messages.Message, error)
	Reply(ctx context.Context, rootID, fromUserID uint64, text string) (*messages.ReplyResult, error)
	Reveal(ctx context.Context, messageID uint64) (*messages.RevealResult, error)
	Get(ctx context.Context, id uint64) (*messages.Message, error)
	List(ctx context.Context, q messages.Query) ([]messages.Message, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkDelivered(ctx context.Context, id uint64) (bool, error)
	Stats(ctx context.Context, userID uint64) (*messages.UserStats, error)
}

type TokenService interface {
	Issue(ctx context.Context, action tokens.Action, entityID uint64, payload tokens.Payload, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string, oneTime bool) (*tokens.Grant, error)
}

type SessionStore interface {
	Get(ctx context.Context, userID uint64) (session.Step, error)
	Set(ctx context.Context, userID uint64, step session.Step) error
	Clear(ctx context.Context, userID uint64) error
	Update(ctx context.Context, userID uint64, fn func(cur session.Step) (session.Step, error)) (session.Step, error)
}

// Notifier pushes to users outside the current turn. Failures never fail a turn.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Options struct {
	BotUsername   string
	PageSize      int
	OpTimeout     time.Duration
	NotifyTimeout time.Duration
	TTL           config.TokenTTLs
}

// OptionsFromConfig copies the controller settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BotUsername:   cfg.BotUsername,
		PageSize:      cfg.PageSize,
		OpTimeout:     cfg.OpTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
		TTL:           cfg.Tokens,
	}
}

type Deps struct {
	Users    UserService
	Links    LinkService
	Messages MessageService
	Tokens   TokenService
	Sessions SessionStore
	Notifier Notifier
	Locker   Locker
}

type Controller struct {
	users    UserService
	links    LinkService
	messages MessageService
	tokens   TokenService
	sessions SessionStore
	notifier Notifier
	locker   Locker
	opts     Options
	now      func() time.Time
}

func NewController(d Deps, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if d.Locker == nil {
		d.Locker = NewKeyedMutex()
	}
	return &Controller{
		users:    d.Users,
		links:    d.Links,
		messages: d.Messages,
		tokens:   d.Tokens,
		sessions: d.Sessions,
		notifier: d.Notifier,
		locker:   d.Locker,
		opts:     opts,
		now:      time.Now,
	}
}

// turnFunc runs inside a turn with the touched user and their language.
type turnFunc func(ctx context.Context, u *users.User, lang string) (*Reply, error)

// turn wraps one unit of work: deadline, per-user lock, user upsert, metrics.
// Domain errors that escape fn are turned into a notice; anything else is
// returned to the caller as a transient failure.
func (c *Controller) turn(ctx context.Context, kind Kind, p users.Profile, fn turnFunc) (*Reply, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()
	ctx = logging.WithFields(ctx, map[string]any{
		"turn":        string(kind),
		"external_id": p.ExternalID,
	})
	lg := logging.FromContext(ctx)

	if p.ExternalID == 0 {
		metrics.RecordTurn(string(kind), "invalid", time.Since(start).Seconds())
		return nil, fmt.Errorf("event without user: %w", common.ErrValidation)
	}

	unlock, err := c.locker.Lock(ctx, turnKey(p.ExternalID))
	if err != nil {
		metrics.RecordTurn(string(kind), "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("acquire turn lock: %w", err)
	}
	defer unlock()

	u, err := c.users.Touch(ctx, p)
	if err != nil {
		metrics.RecordTurn(string(kind), "error", time.Since(start).Seconds())
		return nil, err
	}
	lang := ResolveLang(p.Language)

	reply, err := fn(ctx, u, lang)
	switch {
	case err == nil:
		metrics.RecordTurn(string(kind), "ok", time.Since(start).Seconds())
		return reply, nil
	case common.IsDomain(err):
		lg.Warn().Err(err).Msg("turn ended with domain error")
		metrics.RecordTurn(string(kind), "rejected", time.Since(start).Seconds())
		return alertReply(tr(lang, "unknown_action")), nil
	default:
		lg.Error().Err(err).Dur("cost", time.Since(start)).Msg("turn failed")
		metrics.RecordTurn(string(kind), "error", time.Since(start).Seconds())
		return nil, err
	}
}

// Dispatch routes an inbound event to its handler.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (*Reply, error) {
	if ev.EventID != "" {
		ctx = logging.WithFields(ctx, map[string]any{"event_id": ev.EventID})
	}
	switch ev.Kind {
	case KindText:
		return c.HandleText(ctx, ev.User, ev.Text)
	case KindToken:
		return c.HandleToken(ctx, ev.User, ev.Token)
	case KindDeepLink:
		return c.HandleDeepLink(ctx, ev.User, ev.Slug)
	case KindStart:
		if slug := strings.TrimPrefix(strings.TrimSpace(ev.Slug), "link_"); slug != "" {
			return c.HandleDeepLink(ctx, ev.User, slug)
		}
		var arg string
		if len(ev.Args) > 0 {
			arg = ev.Args[0]
		}
		return c.HandleStart(ctx, ev.User, arg)
	case KindCommand:
		return c.HandleCommand(ctx, ev.User, ev.Command, ev.Args)
	}
	return nil, fmt.Errorf("event kind %q: %w", ev.Kind, common.ErrValidation)
}

// HandleStart follows "link_<slug>" as a deep link; anything else abandons any
// pending wizard and shows the menu.
func (c *Controller) HandleStart(ctx context.Context, p users.Profile, arg string) (*Reply, error) {
	if slug, ok := strings.CutPrefix(strings.TrimSpace(arg), "link_"); ok && slug != "" {
		return c.HandleDeepLink(ctx, p, slug)
	}
	return c.turn(ctx, KindStart, p, func(ctx context.Context, u *users.User, lang string) (*Reply, error) {
		if err := c.sessions.Clear(ctx, u.ID); err != nil {
			return nil, err
		}
		return &Reply{Text: tr(lang, "greeting_menu"), RemoveKeyboard: true}, nil
	})
}

// HandleDeepLink starts the anonymous send wizard for an active link.
func (c *Controller) HandleDeepLink(ctx context.Context, p users.Profile, slug string) (*Reply, error) {
	return c.turn(ctx, KindDeepLink, p, func(ctx context.Context, u *users.User, lang string) (*Reply, error) {
		slug := strings.TrimSpace(slug)
		l, err := c.links.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if l == nil || !l.IsActive {
			return textReply(tr(lang, "invalid_link")), nil
		}
		if err := c.sessions.Set(ctx, u.ID, session.AwaitRevealChoice{LinkSlug: l.Slug}); err != nil {
			return nil, err
		}

		parts := []string{tr(lang, "send_prompt")}
		if l.Prompt != nil && *l.Prompt != "" {
			parts = append(parts, tr(lang, "link_prompt", *l.Prompt))
		}
		parts = append(parts, tr(lang, "reveal_choice"))
		return &Reply{
			Text:    strings.Join(parts, "\n"),
			Choices: revealChoices(lang),
		}, nil
	})
}

// HandleCommand serves /messages, /links, /delete <slug>, /stats and /start.
func (c *Controller) HandleCommand(ctx context.Context, p users.Profile, command string, args []string) (*Reply, error) {
	command = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if command == "start" {
		arg := ""
		if len(args) > 0 {
			arg = args[0]
		}
		return c.HandleStart(ctx, p, arg)
	}
	return c.turn(ctx, KindCommand, p, func(ctx context.Context, u *users.User, lang string) (*Reply, error) {
		switch command {
		case "messages":
			return c.renderMessages(ctx, u, lang, parseFilters(args, c.now()), 0, c.opts.PageSize, false)
		case "links":
			return c.renderLinks(ctx, u, lang, false)
		case "delete":
			return c.deleteLink(ctx, u, lang, args)
		case "stats":
			return c.renderStats(ctx, u, lang)
		}
		return textReply(tr(lang, "greeting_menu")), nil
	})
}

func revealChoices(lang string) []string {
	return []string{tr(lang, "reveal_allow"), tr(lang, "reveal_deny")}
}

// notify pushes n with its own deadline. It reports success and only logs failures.
func (c *Controller) notify(ctx context.Context, n Notification) bool {
	if c.notifier == nil {
		return false
	}
	nctx, cancel := context.WithTimeout(ctx, c.opts.NotifyTimeout)
	defer cancel()
	if err := c.notifier.Notify(nctx, n); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int64("chat_id", n.ChatID).Msg("notify failed")
		return false
	}
	return true
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }
