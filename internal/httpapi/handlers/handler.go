package handlers

import (
	"context"

	"github.com/suPer8Hu/whisperbox/internal/dialog"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

// Controller is the slice of dialog.Controller the HTTP adapter drives.
type Controller interface {
	HandleText(ctx context.Context, p users.Profile, text string) (*dialog.Reply, error)
	HandleToken(ctx context.Context, p users.Profile, token string) (*dialog.Reply, error)
	HandleDeepLink(ctx context.Context, p users.Profile, slug string) (*dialog.Reply, error)
	Dispatch(ctx context.Context, ev dialog.Event) (*dialog.Reply, error)
}

type Handler struct {
	Ctrl Controller
	// Checks are run by /ping, keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

func NewHandler(ctrl Controller, checks map[string]func(ctx context.Context) error) *Handler {
	return &Handler{Ctrl: ctrl, Checks: checks}
}
