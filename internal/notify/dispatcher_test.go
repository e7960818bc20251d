package notify

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &captureSender{}
	dispatcher := NewDispatcher(sender, slog.Default(), 8)

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)

	dispatcher.Enqueue(VerifyEmail("jane@clinic.example", "Jane"))

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	msg := sender.sent[0]
	sender.mu.Unlock()
	require.Equal(t, KindVerifyEmail, msg.Kind)
	require.Equal(t, "jane@clinic.example", msg.To)

	cancel()
	dispatcher.Wait()
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	sender := &captureSender{}
	dispatcher := NewDispatcher(sender, slog.Default(), 8)

	for i := 0; i < 4; i++ {
		dispatcher.Enqueue(Welcome("user@example.com", "User"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go dispatcher.Run(ctx)
	dispatcher.Wait()

	require.Equal(t, 4, sender.count())
}
