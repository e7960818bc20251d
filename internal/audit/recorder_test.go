package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorderDeliversEvents(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, slog.Default(), 8)

	ctx, cancel := context.WithCancel(context.Background())
	go recorder.Run(ctx)

	recorder.Record(context.Background(), Event{
		IdentityID: "identity-1",
		Action:     ActionSignInSuccess,
		Outcome:    "success",
	})

	require.Eventually(t, func() bool {
		events, err := store.ListByIdentity(context.Background(), "identity-1")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByIdentity(context.Background(), "identity-1")
	require.NoError(t, err)
	require.Equal(t, ActionSignInSuccess, events[0].Action)
	require.False(t, events[0].ID.IsNil())
	require.False(t, events[0].Timestamp.IsZero())

	cancel()
	recorder.Wait()
}

func TestRecorderFlushesOnShutdown(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, slog.Default(), 8)

	// Enqueue before the worker starts so the events are only in the inbox.
	for i := 0; i < 3; i++ {
		recorder.Record(context.Background(), Event{IdentityID: "identity-2", Action: ActionSignInDenied})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go recorder.Run(ctx)
	recorder.Wait()

	events, err := store.ListByIdentity(context.Background(), "identity-2")
	require.NoError(t, err)
	require.Len(t, events, 3)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, slog.Default(), 1)

	// No worker running: second record overflows the inbox and is dropped.
	recorder.Record(context.Background(), Event{IdentityID: "identity-3", Action: ActionSignInSuccess})
	recorder.Record(context.Background(), Event{IdentityID: "identity-3", Action: ActionSignInSuccess})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go recorder.Run(ctx)
	recorder.Wait()

	events, err := store.ListByIdentity(context.Background(), "identity-3")
	require.NoError(t, err)
	require.Len(t, events, 1)
}
