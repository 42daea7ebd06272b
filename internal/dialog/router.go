package dialog

import (
	"context"
	"errors"
	"strconv"

	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

// HandleToken redeems a control token and runs the action it encodes.
// Unknown, consumed and expired tokens get a stale reply and change nothing.
func (c *Controller) HandleToken(ctx context.Context, p users.Profile, token string) (*Reply, error) {
	return c.turn(ctx, KindToken, p, func(ctx context.Context, u *users.User, lang string) (*Reply, error) {
		g, err := c.tokens.Consume(ctx, token, true)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return &Reply{Alert: tr(lang, "stale_control"), Stale: true}, nil
		}
		logging.FromContext(ctx).Debug().
			Str("action", string(g.Action)).
			Uint64("entity_id", g.EntityID).
			Msg("token redeemed")

		switch g.Action {
		case tokens.ActionPaginate:
			return c.onPaginate(ctx, u, lang, g)
		case tokens.ActionLinkCreate:
			if err := c.sessions.Set(ctx, u.ID, session.AwaitLinkLabel{}); err != nil {
				return nil, err
			}
			return textReply(tr(lang, "enter_link_label")), nil
		case tokens.ActionLinkToggle:
			return c.onLinkToggle(ctx, u, lang, g.EntityID)
		case tokens.ActionOpenMessage:
			return c.onOpenMessage(ctx, u, lang, g.EntityID)
		case tokens.ActionReply:
			m, reply, err := c.ownMessage(ctx, u, lang, g.EntityID)
			if m == nil {
				return reply, err
			}
			if err := c.sessions.Set(ctx, u.ID, session.AwaitReplyText{ReplyToMessageID: m.ID}); err != nil {
				return nil, err
			}
			return textReply(tr(lang, "reply_prompt")), nil
		case tokens.ActionRevealAuthor:
			return c.onRevealAuthor(ctx, u, lang, g.EntityID)
		}
		return alertReply(tr(lang, "unknown_action")), nil
	})
}

func (c *Controller) onPaginate(ctx context.Context, u *users.User, lang string, g *tokens.Grant) (*Reply, error) {
	pg, err := g.Paginate()
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("bad paginate payload")
		return &Reply{Alert: tr(lang, "stale_control"), Stale: true}, nil
	}
	var f listFilter
	if pg.Status != nil {
		if st, ok := messages.ParseStatus(*pg.Status); ok {
			f.Status = &st
		}
	}
	f.LinkSlug = pg.LinkSlug
	f.From = pg.FromTimestamp

	limit := pg.Limit
	if limit <= 0 {
		limit = c.opts.PageSize
	}
	offset := pg.Offset
	if offset < 0 {
		offset = 0
	}
	return c.renderMessages(ctx, u, lang, f, offset, limit, true)
}

func (c *Controller) onLinkToggle(ctx context.Context, u *users.User, lang string, linkID uint64) (*Reply, error) {
	l, err := c.links.Toggle(ctx, u.ID, linkID)
	if isNotFound(err) {
		return alertReply(tr(lang, "link_not_found")), nil
	}
	if err != nil {
		return nil, err
	}
	reply, err := c.renderLinks(ctx, u, lang, true)
	if err != nil {
		return nil, err
	}
	if l.IsActive {
		reply.Alert = tr(lang, "link_toggled_on")
	} else {
		reply.Alert = tr(lang, "link_toggled_off")
	}
	return reply, nil
}

// ownMessage loads a message the acting user received. A nil message comes
// with the reply to send instead.
func (c *Controller) ownMessage(ctx context.Context, u *users.User, lang string, id uint64) (*messages.Message, *Reply, error) {
	m, err := c.messages.Get(ctx, id)
	if isNotFound(err) {
		return nil, alertReply(tr(lang, "message_unavailable")), nil
	}
	if err != nil {
		return nil, nil, err
	}
	if m.RecipientUserID != u.ID {
		return nil, alertReply(tr(lang, "message_unavailable")), nil
	}
	return m, nil, nil
}

func (c *Controller) onOpenMessage(ctx context.Context, u *users.User, lang string, id uint64) (*Reply, error) {
	m, reply, err := c.ownMessage(ctx, u, lang, id)
	if m == nil {
		return reply, err
	}
	if err := c.messages.MarkRead(ctx, m.ID); err != nil {
		return nil, err
	}

	replyToken, err := c.tokens.Issue(ctx, tokens.ActionReply, m.ID, nil, c.opts.TTL.Message)
	if err != nil {
		return nil, err
	}
	rows := [][]Control{{{Label: tr(lang, "reply_button"), Token: replyToken}}}
	if m.IsRevealAllowed {
		revealToken, err := c.tokens.Issue(ctx, tokens.ActionRevealAuthor, m.ID, nil, c.opts.TTL.Message)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []Control{{Label: tr(lang, "reveal_button"), Token: revealToken}})
	}

	label := ""
	if l, err := c.links.FindByID(ctx, m.LinkID); err != nil {
		return nil, err
	} else if l != nil {
		label = l.Label
	}
	return &Reply{
		Text: tr(lang, "message_body", label, m.Text),
		Rows: rows,
		Edit: true,
	}, nil
}

func (c *Controller) onRevealAuthor(ctx context.Context, u *users.User, lang string, id uint64) (*Reply, error) {
	m, reply, err := c.ownMessage(ctx, u, lang, id)
	if m == nil {
		return reply, err
	}

	res, err := c.messages.Reveal(ctx, m.ID)
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		return alertReply(tr(lang, "reveal_forbidden")), nil
	case isNotFound(err):
		return alertReply(tr(lang, "message_not_found")), nil
	case err != nil:
		return nil, err
	}
	if res.Sender == nil {
		return alertReply(tr(lang, "author_anonymous")), nil
	}

	name := res.Sender.DisplayName()
	if name == "" {
		name = tr(lang, "author_no_name")
	}
	return &Reply{
		Text: tr(lang, "author", name),
		Rows: [][]Control{{{
			Label: tr(lang, "contact_button"),
			URL:   ContactURL(res.Sender.ExternalID),
		}}},
	}, nil
}

// ContactURL opens a direct chat with the transport user.
func ContactURL(externalID int64) string {
	return "tg://user?id=" + strconv.FormatInt(externalID, 10)
}
