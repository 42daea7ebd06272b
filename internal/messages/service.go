package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/links"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

// Text bounds, counted in code points.
const (
	MinTextLen = 1
	MaxTextLen = 2000
)

type LinkFinder interface {
	FindBySlug(ctx context.Context, slug string) (*links.Link, error)
	FindByID(ctx context.Context, id uint64) (*links.Link, error)
}

type UserFinder interface {
	Find(ctx context.Context, id uint64) (*users.User, error)
}

type Service struct {
	repo  *Repo
	links LinkFinder
	users UserFinder
	now   func() time.Time
}

func NewService(repo *Repo, links LinkFinder, users UserFinder) *Service {
	return &Service{repo: repo, links: links, users: users, now: time.Now}
}

// ValidText reports whether text fits the message length bounds.
func ValidText(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= MinTextLen && n <= MaxTextLen
}

type SendInput struct {
	Slug          string
	Text          string
	RevealAllowed bool
	SenderID      *uint64
}

// Send stores an anonymous message for the owner of an active link.
func (s *Service) Send(ctx context.Context, in SendInput) (*Message, error) {
	if !ValidText(in.Text) {
		return nil, fmt.Errorf("message text: %w", common.ErrValidation)
	}
	l, err := s.links.FindBySlug(ctx, strings.TrimSpace(in.Slug))
	if err != nil {
		return nil, err
	}
	if l == nil || !l.IsActive {
		return nil, fmt.Errorf("link %q: %w", in.Slug, common.ErrNotFound)
	}

	m := &Message{
		LinkID:          l.ID,
		RecipientUserID: l.OwnerUserID,
		SenderUserID:    in.SenderID,
		Text:            in.Text,
		IsRevealAllowed: in.RevealAllowed,
		Status:          StatusNew,
		CreatedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

type ReplyResult struct {
	Thread *Thread
	Reply  *ThreadMessage
}

// Reply appends to the root message's thread, creating it on first use, and
// marks the root read. The reply goes to the sender when one is recorded and to
// the recipient otherwise; fromUserID is not checked against either of them.
func (s *Service) Reply(ctx context.Context, rootID, fromUserID uint64, text string) (*ReplyResult, error) {
	if !ValidText(text) {
		return nil, fmt.Errorf("reply text: %w", common.ErrValidation)
	}
	root, err := s.repo.FindByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("message %d: %w", rootID, common.ErrNotFound)
	}

	to := root.RecipientUserID
	if root.SenderUserID != nil {
		to = *root.SenderUserID
	}
	tm := &ThreadMessage{
		FromUserID: fromUserID,
		ToUserID:   to,
		Text:       text,
		CreatedAt:  s.now(),
	}
	thread, err := s.repo.AppendReply(ctx, rootID, tm)
	if err != nil {
		return nil, err
	}
	return &ReplyResult{Thread: thread, Reply: tm}, nil
}

type RevealResult struct {
	// Sender is nil when no sender was recorded or the user is gone.
	Sender  *users.User
	Message *Message
	Link    *links.Link
}

// Reveal discloses the sender of a message whose author opted in.
// It fails with common.ErrPermissionDenied otherwise and leaves is_revealed untouched.
func (s *Service) Reveal(ctx context.Context, messageID uint64) (*RevealResult, error) {
	m, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, common.ErrNotFound)
	}
	if !m.IsRevealAllowed {
		return nil, fmt.Errorf("reveal message %d: %w", messageID, common.ErrPermissionDenied)
	}

	var sender *users.User
	if m.SenderUserID != nil {
		sender, err = s.users.Find(ctx, *m.SenderUserID)
		if err != nil {
			return nil, err
		}
	}
	l, err := s.links.FindByID(ctx, m.LinkID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("link %d for message %d: %w", m.LinkID, messageID, common.ErrNotFound)
	}

	if err := s.repo.MarkRevealed(ctx, m.ID); err != nil {
		return nil, err
	}
	m.IsRevealed = true
	return &RevealResult{Sender: sender, Message: m, Link: l}, nil
}

// Get returns common.ErrNotFound when the message does not exist.
func (s *Service) Get(ctx context.Context, id uint64) (*Message, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, q Query) ([]Message, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.repo.List(ctx, q)
}

func (s *Service) MarkRead(ctx context.Context, id uint64) error {
	return s.repo.MarkRead(ctx, id, s.now())
}

// MarkDelivered reports whether the message moved from NEW to DELIVERED.
func (s *Service) MarkDelivered(ctx context.Context, id uint64) (bool, error) {
	return s.repo.MarkDelivered(ctx, id, s.now())
}

func (s *Service) Stats(ctx context.Context, userID uint64) (*UserStats, error) {
	return s.repo.Stats(ctx, userID)
}
