package tokens

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the action-specific part of a token. Actions whose only argument
// is the target id carry no payload and pass nil.
type Payload interface {
	Action() Action
}

// Paginate snapshots a message list query. Nil filters mean "not applied".
type Paginate struct {
	Status        *string    `json:"status"`
	LinkSlug      *string    `json:"linkSlug"`
	FromTimestamp *time.Time `json:"fromTimestamp"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
}

func (Paginate) Action() Action { return ActionPaginate }

func encodePayload(action Action, p Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	if p.Action() != action {
		return nil, fmt.Errorf("payload for %s attached to %s token", p.Action(), action)
	}
	return json.Marshal(p)
}
