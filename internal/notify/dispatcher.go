package notify

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher queues messages and delivers them off the request path. A full
// queue drops the message with a warning; notifications are advisory.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	queue  chan Message
	done   chan struct{}
}

// NewDispatcher builds a dispatcher with the given queue capacity.
func NewDispatcher(sender Sender, logger *slog.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 128
	}
	return &Dispatcher{
		sender: sender,
		logger: logger,
		queue:  make(chan Message, buffer),
		done:   make(chan struct{}),
	}
}

// Enqueue accepts a message for delivery. Never blocks.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("notification queue full, dropping message",
			"to", msg.To, "kind", string(msg.Kind))
	}
}

// Run delivers queued messages until ctx is cancelled, then drains the queue.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case msg := <-d.queue:
			d.deliver(msg)
		}
	}
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() { <-d.done }

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("notification delivery failed",
			"error", err, "to", msg.To, "kind", string(msg.Kind))
	}
}
