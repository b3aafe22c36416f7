package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"reminder-bot/internal/model"
)

func TestNotifier_FailuresAreLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &fakeSink{failFor: map[int64]error{1: errors.New("chat not found")}}
	n := NewNotifier(sink, time.Second, zap.New(core))

	events := make(chan Event, 4)
	events <- Event{Kind: EventReminder, Owner: 1, TaskID: 10, Text: "lost"}
	events <- Event{Kind: EventReminder, Owner: 2, TaskID: 11, Text: "kept", Timezone: "UTC"}
	events <- Event{Kind: EventDailySummary, Owner: 2, Timezone: "UTC", Items: []DigestItem{{TaskID: 11, Text: "kept"}}}
	close(events)

	n.Run(context.Background(), events)

	require.Equal(t, 1, sink.reminderCount())
	assert.Equal(t, "kept", sink.reminders[0].text)
	require.Equal(t, 1, sink.summaryCount())
	assert.Len(t, sink.summaries[0].items, 1)

	entries := logs.FilterMessage("notification not delivered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["chat_id"])
}

func TestNotifier_DeliverWrapsErrors(t *testing.T) {
	cause := errors.New("boom")
	n := NewNotifier(&fakeSink{failFor: map[int64]error{7: cause}}, 0, zap.NewNop())

	err := n.Deliver(context.Background(), Event{Kind: EventDailySummary, Owner: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDelivery)
	assert.ErrorIs(t, err, cause)

	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "daily_summary", de.Kind)

	assert.NoError(t, n.Deliver(context.Background(), Event{Kind: EventKind(99), Owner: 7}))
}

func TestNotifier_StopsOnContextCancel(t *testing.T) {
	n := NewNotifier(&fakeSink{}, time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx, make(chan Event))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}
}
