package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/dialog"
	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/notify"
	"github.com/suPer8Hu/whisperbox/internal/store/rabbitmq"
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

type dispatcher interface {
	Dispatch(ctx context.Context, ev dialog.Event) (*dialog.Reply, error)
}

type replyPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

type retrier interface {
	Retry(ctx context.Context, body []byte, attempt int, delay time.Duration) error
}

type handler struct {
	ctrl  dispatcher
	out   replyPublisher
	retry retrier
}

// handle runs one inbound event and settles the delivery. Malformed and
// invalid events go to the DLQ; transient failures are retried through the
// retry queue a bounded number of times.
func (h *handler) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	lg := logging.FromContext(ctx).With().Int("worker", workerID).Logger()

	var ev dialog.Event
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Kind == "" {
		lg.Warn().Err(err).Msg("bad message")
		_ = d.Nack(false, false)
		return
	}
	if ev.EventID == "" {
		ev.EventID = d.MessageId
	}
	if ev.EventID == "" {
		if id, err := common.NewULID(); err == nil {
			ev.EventID = id
		}
	}
	lg = lg.With().Str("event_id", ev.EventID).Logger()
	ctx = lg.WithContext(ctx)

	start := time.Now()
	reply, err := h.ctrl.Dispatch(ctx, ev)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			lg.Warn().Err(err).Msg("invalid event")
			_ = d.Nack(false, false)
			return
		}

		attempt := rabbitmq.Attempt(d.Headers) + 1
		if attempt < maxAttempts && h.retry != nil {
			rerr := h.retry.Retry(ctx, d.Body, attempt, retryDelay*time.Duration(attempt))
			if rerr == nil {
				lg.Warn().Err(err).Int("attempt", attempt).Dur("cost", time.Since(start)).Msg("event failed, retry scheduled")
				_ = d.Ack(false)
				return
			}
			lg.Error().Err(rerr).Msg("schedule retry")
		}
		lg.Error().Err(err).Int("attempt", attempt).Msg("event failed, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	// The turn has already taken effect; a lost reply is not worth replaying it.
	if reply != nil && h.out != nil {
		env := notify.Envelope{
			Kind:    notify.KindReply,
			ChatID:  ev.User.ExternalID,
			EventID: ev.EventID,
			Reply:   *reply,
		}
		if err := h.out.PublishJSON(ctx, env); err != nil {
			lg.Error().Err(err).Msg("publish reply")
		}
	}

	if err := d.Ack(false); err != nil {
		lg.Error().Err(err).Msg("ack failed")
	}
	if cost := time.Since(start); cost > 2*time.Second {
		lg.Warn().Dur("cost", cost).Str("kind", string(ev.Kind)).Msg("slow event")
	}
}
