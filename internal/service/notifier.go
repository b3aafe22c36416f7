package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reminder-bot/internal/model"
)

// Notifier drains the event channel into a Sink. Delivery failures are logged and dropped.
type Notifier struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration
}

func NewNotifier(sink Sink, timeout time.Duration, log *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sink: sink, log: log.Named("notifier"), timeout: timeout}
}

// Run delivers events until ctx is cancelled or events is closed.
func (n *Notifier) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := n.Deliver(ctx, ev); err != nil {
				n.log.Error("notification not delivered",
					zap.Stringer("kind", ev.Kind),
					zap.Int64("chat_id", ev.Owner),
					zap.Uint("task_id", ev.TaskID),
					zap.Error(err),
				)
			}
		}
	}
}

// Deliver hands a single event to the sink. Errors are wrapped in model.DeliveryError.
func (n *Notifier) Deliver(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case EventReminder:
		err = n.sink.NotifyReminder(ctx, ev.Owner, ev.Text, ev.LocalDue, ev.Timezone)
	case EventDailySummary:
		err = n.sink.NotifyDailySummary(ctx, ev.Owner, ev.Items, ev.Date, ev.Timezone)
	default:
		n.log.Warn("unknown event kind", zap.Int("kind", int(ev.Kind)))
		return nil
	}
	if err != nil {
		return &model.DeliveryError{Kind: ev.Kind.String(), Owner: ev.Owner, Err: err}
	}
	return nil
}
