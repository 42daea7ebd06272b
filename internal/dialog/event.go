package dialog

import "github.com/suPer8Hu/whisperbox/internal/users"

type Kind string

const (
	KindText     Kind = "text"
	KindToken    Kind = "token"
	KindDeepLink Kind = "deeplink"
	KindStart    Kind = "start"
	KindCommand  Kind = "command"
)

// Event is one inbound unit of work from the transport.
type Event struct {
	EventID string        `json:"event_id"`
	Kind    Kind          `json:"kind"`
	User    users.Profile `json:"user"`
	Text    string        `json:"text,omitempty"`
	Token   string        `json:"token,omitempty"`
	// Slug is the link slug for deeplink events. On a start event it is
	// followed as a deep link, with or without the "link_" prefix; the raw
	// start parameter goes in Args instead.
	Slug    string        `json:"slug,omitempty"`
	Command string        `json:"command,omitempty"`
	Args    []string      `json:"args,omitempty"`
}

// Control is one inline button: either a capability token or a URL.
type Control struct {
	Label string `json:"label"`
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Reply tells the transport what to render.
type Reply struct {
	Text string      `json:"text,omitempty"`
	Rows [][]Control `json:"rows,omitempty"`
	// Choices are literal labels for a one-time reply keyboard.
	Choices        []string `json:"choices,omitempty"`
	RemoveKeyboard bool     `json:"remove_keyboard,omitempty"`
	// Alert is a non-fatal notice shown next to the tapped control.
	Alert string `json:"alert,omitempty"`
	Stale bool   `json:"stale,omitempty"`
	// Edit replaces the message that carried the tapped control.
	Edit bool `json:"edit,omitempty"`
}

// Notification is a push to a user outside the current turn.
type Notification struct {
	ChatID int64 `json:"chat_id"`
	Reply  Reply `json:"reply"`
}

func textReply(text string) *Reply { return &Reply{Text: text} }

func alertReply(text string) *Reply { return &Reply{Alert: text} }
