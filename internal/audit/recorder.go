package audit

import (
	"context"
	"log/slog"
	"time"

	"carehub/pkg/domain"
	"carehub/pkg/requestcontext"
)

// Store is the sink the recorder appends to.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder decouples audit writes from request latency. Record enqueues onto a
// bounded inbox; a background worker drains it into the store. A full inbox
// drops the event with a warning rather than blocking the request path.
type Recorder struct {
	store  Store
	logger *slog.Logger
	inbox  chan Event
	done   chan struct{}
}

// NewRecorder builds a recorder with the given inbox capacity.
func NewRecorder(store Store, logger *slog.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		store:  store,
		logger: logger,
		inbox:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Record enqueues an event, stamping ID, timestamp and request ID when absent.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.ID.IsNil() {
		event.ID = domain.NewAuditID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("audit inbox full, dropping event",
			"action", event.Action, "identity_id", event.IdentityID)
	}
}

// Run drains the inbox until ctx is cancelled, then flushes what is queued.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case event := <-r.inbox:
			r.append(event)
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() { <-r.done }

func (r *Recorder) flush() {
	for {
		select {
		case event := <-r.inbox:
			r.append(event)
		default:
			return
		}
	}
}

func (r *Recorder) append(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Append(ctx, event); err != nil {
		r.logger.Error("audit append failed", "error", err, "action", event.Action)
	}
}
