package charges

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

const maxOperationIDLength = 200

// Record marks an operation as settled.
type Record struct {
	OperationID  string          `json:"operation_id"`
	AmountTenths int64           `json:"amount_tenths"`
	SettledAt    time.Time       `json:"settled_at"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Decode unmarshals the stored result into v.
func (r *Record) Decode(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("charges: record %q has no result", r.OperationID)
	}
	return json.Unmarshal(r.Result, v)
}

// Recorder reads and writes settlement records.
type Recorder struct {
	kv     kv.Store
	ttl    time.Duration
	scope  string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a recorder whose markers expire after ttl.
func NewRecorder(store kv.Store, ttl time.Duration, opts ...Option) (*Recorder, error) {
	if ttl <= 0 {
		return nil, ErrTTLRequired
	}
	r := &Recorder{
		kv:     store,
		ttl:    ttl,
		scope:  "default",
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Scoped returns a copy of the recorder writing to a separate namespace.
func (r *Recorder) Scoped(scope string) *Recorder {
	c := *r
	c.scope = scope
	return &c
}

// TTL returns how long settlement markers are kept.
func (r *Recorder) TTL() time.Duration {
	return r.ttl
}

// IsSettled returns the record of a settled operation, or nil.
func (r *Recorder) IsSettled(ctx context.Context, account meter.Key, operationID string) (*Record, error) {
	key, err := r.key(account, operationID)
	if err != nil {
		return nil, err
	}

	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, kv.Unavailable(err)
	}
	if raw == nil {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.OperationID != operationID {
		r.logger.WarnContext(ctx, "settlement record unreadable, treating as absent",
			logger.Key(key),
		)
		return nil, nil
	}
	return &rec, nil
}

// RecordSettlement stores the marker for operationID unless one exists. It
// returns the record that is stored afterwards and whether this call created
// it; when another writer settled first, their record is returned.
func (r *Recorder) RecordSettlement(ctx context.Context, account meter.Key, operationID string, amountTenths int64, result any) (Record, bool, error) {
	key, err := r.key(account, operationID)
	if err != nil {
		return Record{}, false, err
	}

	rec := Record{
		OperationID:  operationID,
		AmountTenths: amountTenths,
		SettledAt:    r.now().UTC(),
	}
	if result != nil {
		if rec.Result, err = json.Marshal(result); err != nil {
			return Record{}, false, fmt.Errorf("charges: encode result: %w", err)
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return Record{}, false, fmt.Errorf("charges: encode record: %w", err)
	}

	created, err := kv.PutIfAbsent(ctx, r.kv, key, b, r.ttl)
	if err != nil {
		return Record{}, false, err
	}
	if created {
		return rec, true, nil
	}

	existing, err := r.IsSettled(ctx, account, operationID)
	if err != nil {
		return Record{}, false, err
	}
	if existing == nil {
		// The marker expired or was unreadable between the two calls.
		if err := r.kv.Put(ctx, key, b, r.ttl); err != nil {
			return Record{}, false, kv.Unavailable(err)
		}
		return rec, true, nil
	}
	return *existing, false, nil
}

func (r *Recorder) key(account meter.Key, operationID string) (string, error) {
	if err := account.Validate(); err != nil {
		return "", err
	}
	if operationID == "" || len(operationID) > maxOperationIDLength || strings.ContainsAny(operationID, " \t\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperationID, operationID)
	}
	return "charge:" + r.scope + ":" + account.String() + ":" + operationID, nil
}
