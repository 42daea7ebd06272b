package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

const listPreviewLen = 80

// renderMessages lists one page of the user's inbox with an open control per
// message and prev/next controls. next only appears after a full page.
func (c *Controller) renderMessages(ctx context.Context, u *users.User, lang string, f listFilter, offset, limit int, edit bool) (*Reply, error) {
	q := messages.Query{
		RecipientID: u.ID,
		Status:      f.Status,
		From:        f.From,
		Limit:       limit,
		Offset:      offset,
	}
	linkLabel := ""
	if f.LinkSlug != nil {
		l, err := c.links.FindBySlug(ctx, *f.LinkSlug)
		if err != nil {
			return nil, err
		}
		if l == nil || l.OwnerUserID != u.ID {
			return &Reply{Text: tr(lang, "link_not_found"), Edit: edit}, nil
		}
		q.LinkID = &l.ID
		linkLabel = l.Label
	}

	page, err := c.messages.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return &Reply{Text: tr(lang, "no_messages"), Edit: edit}, nil
	}

	lines := []string{tr(lang, "messages_header")}
	if f.Status != nil {
		lines = append(lines, tr(lang, "filter_status", string(*f.Status)))
	}
	if linkLabel != "" {
		lines = append(lines, tr(lang, "filter_link", linkLabel))
	}
	if f.From != nil {
		lines = append(lines, tr(lang, "filter_period", f.From.UTC().Format(time.RFC3339)))
	}
	lines = append(lines, "")

	var rows [][]Control
	for _, m := range page {
		tok, err := c.tokens.Issue(ctx, tokens.ActionOpenMessage, m.ID, nil, c.opts.TTL.Message)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("- [%s] #%d: %s", m.Status, m.ID, preview(m.Text, listPreviewLen)))
		rows = append(rows, []Control{{Label: tr(lang, "open_message_n", m.ID), Token: tok}})
	}

	snapshot := tokens.Paginate{
		LinkSlug:      f.LinkSlug,
		FromTimestamp: f.From,
		Limit:         limit,
	}
	if f.Status != nil {
		s := string(*f.Status)
		snapshot.Status = &s
	}

	var nav []Control
	if offset > 0 {
		prev := snapshot
		prev.Offset = max(0, offset-limit)
		tok, err := c.tokens.Issue(ctx, tokens.ActionPaginate, 0, prev, c.opts.TTL.Paginate)
		if err != nil {
			return nil, err
		}
		nav = append(nav, Control{Label: tr(lang, "page_prev"), Token: tok})
	}
	if len(page) == limit {
		next := snapshot
		next.Offset = offset + limit
		tok, err := c.tokens.Issue(ctx, tokens.ActionPaginate, 0, next, c.opts.TTL.Paginate)
		if err != nil {
			return nil, err
		}
		nav = append(nav, Control{Label: tr(lang, "page_next"), Token: tok})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	return &Reply{Text: strings.Join(lines, "\n"), Rows: rows, Edit: edit}, nil
}

// renderLinks lists the user's links with a toggle control each and a create control.
func (c *Controller) renderLinks(ctx context.Context, u *users.User, lang string, edit bool) (*Reply, error) {
	owned, err := c.links.ListByOwner(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	stats, err := c.messages.Stats(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint64]int64, len(stats.Links))
	for _, ls := range stats.Links {
		counts[ls.LinkID] = ls.MessagesCount
	}

	lines := []string{tr(lang, "links_header")}
	if len(owned) == 0 {
		lines = append(lines, tr(lang, "no_links"))
	}
	var rows [][]Control
	for _, l := range owned {
		mark := "⏸"
		if l.IsActive {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%d)", mark, l.Label, counts[l.ID]))

		tok, err := c.tokens.Issue(ctx, tokens.ActionLinkToggle, l.ID, nil, c.opts.TTL.LinkToggle)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []Control{{Label: tr(lang, "toggle_button", l.Label), Token: tok}})
	}

	tok, err := c.tokens.Issue(ctx, tokens.ActionLinkCreate, 0, nil, c.opts.TTL.LinkCreate)
	if err != nil {
		return nil, err
	}
	rows = append(rows, []Control{{Label: tr(lang, "create_link_button"), Token: tok}})

	return &Reply{Text: strings.Join(lines, "\n"), Rows: rows, Edit: edit}, nil
}

// deleteLink soft-deletes the caller's link named by args[0]; the slug stays
// reserved. Links owned by someone else read as not found.
func (c *Controller) deleteLink(ctx context.Context, u *users.User, lang string, args []string) (*Reply, error) {
	if len(args) == 0 {
		return textReply(tr(lang, "delete_usage")), nil
	}
	l, err := c.links.FindBySlug(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return nil, err
	}
	if l == nil || l.OwnerUserID != u.ID {
		return textReply(tr(lang, "link_not_found")), nil
	}
	if err := c.links.Delete(ctx, u.ID, l.ID); err != nil {
		return nil, err
	}
	reply, err := c.renderLinks(ctx, u, lang, false)
	if err != nil {
		return nil, err
	}
	reply.Text = tr(lang, "link_deleted", l.Label) + "\n\n" + reply.Text
	return reply, nil
}

func (c *Controller) renderStats(ctx context.Context, u *users.User, lang string) (*Reply, error) {
	st, err := c.messages.Stats(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	lines := []string{
		tr(lang, "stats_header"),
		tr(lang, "stats_totals", st.TotalMessages, st.TotalReplies, st.TotalRevealed, st.TotalReported, st.TotalLinks),
		"",
	}
	if len(st.Links) == 0 {
		lines = append(lines, tr(lang, "stats_links_none"))
	} else {
		lines = append(lines, tr(lang, "stats_links_header"))
		for _, ls := range st.Links {
			lines = append(lines, tr(lang, "stats_link_line", ls.Label, ls.MessagesCount, ls.UniqueSenders))
		}
	}
	return textReply(strings.Join(lines, "\n")), nil
}
