package dialog

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

const (
	previewLen  = 200
	skipPrompt  = "-"
	maxLabelLen = 255
)

// HandleText advances the user's dialog state with free text.
func (c *Controller) HandleText(ctx context.Context, p users.Profile, text string) (*Reply, error) {
	return c.turn(ctx, KindText, p, func(ctx context.Context, u *users.User, lang string) (*Reply, error) {
		step, err := c.sessions.Get(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if step != nil && !step.Valid() {
			return c.expired(ctx, u, lang)
		}

		switch st := step.(type) {
		case session.AwaitRevealChoice:
			return c.onRevealChoice(ctx, u, lang, text)
		case session.AwaitMessageText:
			return c.onMessageText(ctx, u, lang, st, text)
		case session.AwaitReplyText:
			return c.onReplyText(ctx, u, lang, st, text)
		case session.AwaitLinkLabel:
			return c.onLinkLabel(ctx, u, lang, text)
		case session.AwaitLinkPrompt:
			return c.onLinkPrompt(ctx, u, lang, st, text)
		}
		return textReply(tr(lang, "send_prompt")), nil
	})
}

func (c *Controller) expired(ctx context.Context, u *users.User, lang string) (*Reply, error) {
	if err := c.sessions.Clear(ctx, u.ID); err != nil {
		return nil, err
	}
	return &Reply{Text: tr(lang, "session_expired"), RemoveKeyboard: true}, nil
}

func (c *Controller) onRevealChoice(ctx context.Context, u *users.User, lang, text string) (*Reply, error) {
	allowed, ok := revealChoice(text)
	if !ok {
		return &Reply{Text: tr(lang, "choose_option"), Choices: revealChoices(lang)}, nil
	}

	next, err := c.sessions.Update(ctx, u.ID, func(cur session.Step) (session.Step, error) {
		st, ok := cur.(session.AwaitRevealChoice)
		if !ok || !st.Valid() {
			return nil, nil
		}
		return session.AwaitMessageText{LinkSlug: st.LinkSlug, RevealAllowed: &allowed}, nil
	})
	if err != nil {
		return nil, err
	}
	if next == nil {
		return &Reply{Text: tr(lang, "session_expired"), RemoveKeyboard: true}, nil
	}
	return &Reply{Text: tr(lang, "enter_text"), RemoveKeyboard: true}, nil
}

func (c *Controller) onMessageText(ctx context.Context, u *users.User, lang string, st session.AwaitMessageText, text string) (*Reply, error) {
	if !messages.ValidText(text) {
		return textReply(tr(lang, "message_length")), nil
	}

	m, err := c.messages.Send(ctx, messages.SendInput{
		Slug:          st.LinkSlug,
		Text:          text,
		RevealAllowed: *st.RevealAllowed,
		SenderID:      &u.ID,
	})
	if isNotFound(err) {
		// the link went away while the wizard was open
		if err := c.sessions.Clear(ctx, u.ID); err != nil {
			return nil, err
		}
		return textReply(tr(lang, "invalid_link")), nil
	}
	if err != nil {
		return nil, err
	}

	openToken, err := c.tokens.Issue(ctx, tokens.ActionOpenMessage, m.ID, nil, c.opts.TTL.Notification)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Clear(ctx, u.ID); err != nil {
		return nil, err
	}

	c.notifyNewMessage(ctx, m, openToken)
	return textReply(tr(lang, "message_sent")), nil
}

// notifyNewMessage pushes the open control to the recipient and marks the
// message delivered once the push went through.
func (c *Controller) notifyNewMessage(ctx context.Context, m *messages.Message, openToken string) {
	lg := logging.FromContext(ctx)
	recipient, err := c.users.Find(ctx, m.RecipientUserID)
	if err != nil || recipient == nil {
		lg.Warn().Err(err).Uint64("message_id", m.ID).Msg("recipient lookup failed")
		return
	}
	label := ""
	if l, err := c.links.FindByID(ctx, m.LinkID); err == nil && l != nil {
		label = l.Label
	}

	rlang := ResolveLang(recipient.Language)
	n := Notification{
		ChatID: recipient.ExternalID,
		Reply: Reply{
			Text: tr(rlang, "new_message", label, preview(m.Text, previewLen)),
			Rows: [][]Control{{{Label: tr(rlang, "open_message"), Token: openToken}}},
		},
	}
	if !c.notify(ctx, n) {
		return
	}
	if _, err := c.messages.MarkDelivered(ctx, m.ID); err != nil {
		lg.Warn().Err(err).Uint64("message_id", m.ID).Msg("mark delivered failed")
	}
}

func (c *Controller) onReplyText(ctx context.Context, u *users.User, lang string, st session.AwaitReplyText, text string) (*Reply, error) {
	if !messages.ValidText(text) {
		return textReply(tr(lang, "reply_length")), nil
	}

	res, err := c.messages.Reply(ctx, st.ReplyToMessageID, u.ID, text)
	if isNotFound(err) {
		if err := c.sessions.Clear(ctx, u.ID); err != nil {
			return nil, err
		}
		return textReply(tr(lang, "message_not_found")), nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Clear(ctx, u.ID); err != nil {
		return nil, err
	}

	to, err := c.users.Find(ctx, res.Reply.ToUserID)
	if err != nil || to == nil {
		logging.FromContext(ctx).Warn().Err(err).Uint64("to_user_id", res.Reply.ToUserID).Msg("reply recipient lookup failed")
	} else {
		c.notify(ctx, Notification{
			ChatID: to.ExternalID,
			Reply:  Reply{Text: tr(ResolveLang(to.Language), "reply_received", preview(text, previewLen))},
		})
	}
	return textReply(tr(lang, "reply_sent")), nil
}

func (c *Controller) onLinkLabel(ctx context.Context, u *users.User, lang, text string) (*Reply, error) {
	label := strings.TrimSpace(text)
	if label == "" || utf8.RuneCountInString(label) > maxLabelLen {
		return textReply(tr(lang, "enter_link_label")), nil
	}
	next, err := c.sessions.Update(ctx, u.ID, func(cur session.Step) (session.Step, error) {
		if _, ok := cur.(session.AwaitLinkLabel); !ok {
			return cur, nil
		}
		return session.AwaitLinkPrompt{Label: label}, nil
	})
	if err != nil {
		return nil, err
	}
	if _, ok := next.(session.AwaitLinkPrompt); !ok {
		return textReply(tr(lang, "session_expired")), nil
	}
	return textReply(tr(lang, "enter_link_prompt")), nil
}

func (c *Controller) onLinkPrompt(ctx context.Context, u *users.User, lang string, st session.AwaitLinkPrompt, text string) (*Reply, error) {
	var prompt *string
	if v := strings.TrimSpace(text); v != "" && v != skipPrompt {
		prompt = &v
	}
	l, err := c.links.Create(ctx, u.ID, st.Label, prompt)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Clear(ctx, u.ID); err != nil {
		return nil, err
	}
	url := DeepLinkURL(c.opts.BotUsername, l.Slug)
	return &Reply{
		Text: tr(lang, "link_created", l.Label, url),
		Rows: [][]Control{{{Label: l.Label, URL: url}}},
	}, nil
}

// DeepLinkURL is the shareable start link for slug.
func DeepLinkURL(bot, slug string) string {
	return fmt.Sprintf("https://t.me/%s?start=link_%s", bot, slug)
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
