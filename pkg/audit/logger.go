package audit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// BatchStorage persists many events at once. A returned error means some or
// all of the events were not written.
type BatchStorage interface {
	Storage
	StoreBatch(ctx context.Context, events []Event) error
}

// Logger builds and stores audit events.
type Logger struct {
	storage Storage
	hasher  Hasher
	now     func() time.Time
	newID   func() string
}

// Option configures a Logger.
type Option func(*Logger)

// WithHasher hashes guest account ids set through WithAccount.
func WithHasher(h Hasher) Option {
	return func(l *Logger) {
		l.hasher = h
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

func newULID() string {
	return ulid.Make().String()
}

// WithIDGenerator overrides event id generation. The default is a ULID, so ids
// sort by creation time.
func WithIDGenerator(fn func() string) Option {
	return func(l *Logger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// NewLogger creates a logger writing to storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
		newID:   newULID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records an event of eventType for action.
func (l *Logger) Log(ctx context.Context, eventType, action string, opts ...EventOption) error {
	event := Event{
		ID:        l.newID(),
		EventType: eventType,
		Action:    action,
		CreatedAt: l.now().UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	if event.account != nil {
		ref := l.accountRef(*event.account)
		if event.Resource == "" {
			event.Resource = ref
		}
		if event.Details == nil {
			event.Details = make(map[string]any)
		}
		event.Details["account_key"] = ref
		event.account = nil
	}

	if err := event.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, event)
}

func (l *Logger) accountRef(key meter.Key) string {
	if l.hasher == nil || key.Class != meter.ClassGuest {
		return key.String()
	}
	return string(key.Class) + ":" + l.hasher.Hash(key.ID)
}
