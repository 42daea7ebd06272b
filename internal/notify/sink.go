package notify

import (
	"context"

	"github.com/suPer8Hu/whisperbox/internal/dialog"
	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/metrics"
)

// Envelope is what goes out on the outbound queue, for both turn replies and
// pushes to other users.
type Envelope struct {
	Kind    string       `json:"kind"`
	ChatID  int64        `json:"chat_id"`
	EventID string       `json:"event_id,omitempty"`
	Reply   dialog.Reply `json:"reply"`
}

const (
	KindNotification = "notification"
	KindReply        = "reply"
)

// Publisher is the slice of the AMQP publisher a sink needs.
type Publisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// AMQPSink publishes notifications to the outbound queue.
type AMQPSink struct {
	pub Publisher
}

func NewAMQPSink(pub Publisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

func (s *AMQPSink) Notify(ctx context.Context, n dialog.Notification) error {
	err := s.pub.PublishJSON(ctx, Envelope{
		Kind:   KindNotification,
		ChatID: n.ChatID,
		Reply:  n.Reply,
	})
	if err != nil {
		metrics.RecordNotification("amqp", "error")
		return err
	}
	metrics.RecordNotification("amqp", "ok")
	return nil
}

// LogSink only logs; used when no broker is configured.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, n dialog.Notification) error {
	logging.FromContext(ctx).Info().
		Int64("chat_id", n.ChatID).
		Int("controls", countControls(n.Reply)).
		Msg("notification")
	metrics.RecordNotification("log", "ok")
	return nil
}

func countControls(r dialog.Reply) int {
	n := 0
	for _, row := range r.Rows {
		n += len(row)
	}
	return n
}
