package session

import "encoding/json"

type Tag string

const (
	TagAwaitRevealChoice Tag = "await_reveal_choice"
	TagAwaitMessageText  Tag = "await_message_text"
	TagAwaitReplyText    Tag = "await_reply_text"
	TagAwaitLinkLabel    Tag = "await_link_label"
	TagAwaitLinkPrompt   Tag = "await_link_prompt"
)

// Step is one persisted dialog state together with its payload.
// Valid is false when a required payload key is missing.
type Step interface {
	Tag() Tag
	Valid() bool
}

// AwaitRevealChoice waits for the sender to allow or deny disclosure.
type AwaitRevealChoice struct {
	LinkSlug string `json:"pendingLinkSlug"`
}

func (AwaitRevealChoice) Tag() Tag      { return TagAwaitRevealChoice }
func (s AwaitRevealChoice) Valid() bool { return s.LinkSlug != "" }

// AwaitMessageText waits for the anonymous message body.
type AwaitMessageText struct {
	LinkSlug      string `json:"pendingLinkSlug"`
	RevealAllowed *bool  `json:"pendingRevealAllowed"`
}

func (AwaitMessageText) Tag() Tag { return TagAwaitMessageText }
func (s AwaitMessageText) Valid() bool {
	return s.LinkSlug != "" && s.RevealAllowed != nil
}

// AwaitReplyText waits for the recipient's reply to a message.
type AwaitReplyText struct {
	ReplyToMessageID uint64 `json:"replyToMessageId"`
}

func (AwaitReplyText) Tag() Tag      { return TagAwaitReplyText }
func (s AwaitReplyText) Valid() bool { return s.ReplyToMessageID != 0 }

type AwaitLinkLabel struct{}

func (AwaitLinkLabel) Tag() Tag    { return TagAwaitLinkLabel }
func (AwaitLinkLabel) Valid() bool { return true }

type AwaitLinkPrompt struct {
	Label string `json:"label"`
}

func (AwaitLinkPrompt) Tag() Tag      { return TagAwaitLinkPrompt }
func (s AwaitLinkPrompt) Valid() bool { return s.Label != "" }

// decodeStep maps a stored row back to its Step. Unknown tags read as no state;
// an undecodable payload yields the zero step, which is not Valid.
func decodeStep(tag Tag, data []byte) Step {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch tag {
	case TagAwaitRevealChoice:
		var s AwaitRevealChoice
		if json.Unmarshal(data, &s) != nil {
			return AwaitRevealChoice{}
		}
		return s
	case TagAwaitMessageText:
		var s AwaitMessageText
		if json.Unmarshal(data, &s) != nil {
			return AwaitMessageText{}
		}
		return s
	case TagAwaitReplyText:
		var s AwaitReplyText
		if json.Unmarshal(data, &s) != nil {
			return AwaitReplyText{}
		}
		return s
	case TagAwaitLinkLabel:
		return AwaitLinkLabel{}
	case TagAwaitLinkPrompt:
		var s AwaitLinkPrompt
		if json.Unmarshal(data, &s) != nil {
			return AwaitLinkPrompt{}
		}
		return s
	}
	return nil
}
