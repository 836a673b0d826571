package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/charges"
	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Ledger owns the credit pack collections.
type Ledger struct {
	kv         kv.Store
	recorder   *charges.Recorder
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
	retries    int
	onConflict func(key string, attempt int)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithIDGenerator overrides pack id generation.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithRetries sets the compare-and-swap retry budget.
func WithRetries(n int) Option {
	return func(l *Ledger) { l.retries = n }
}

// WithConflictHook is called after every lost compare-and-swap.
func WithConflictHook(fn func(key string, attempt int)) Option {
	return func(l *Ledger) { l.onConflict = fn }
}

// NewLedger creates a ledger over store. Settlement markers are written
// through recorder under its own scope.
func NewLedger(store kv.Store, recorder *charges.Recorder, opts ...Option) *Ledger {
	l := &Ledger{
		kv:       store,
		recorder: recorder.Scoped("ledger"),
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
		retries:  kv.DefaultRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Balance returns the sum of the account's unexpired packs.
func (l *Ledger) Balance(ctx context.Context, account meter.Key) (int64, error) {
	packs, err := l.Packs(ctx, account)
	if err != nil {
		return 0, err
	}
	return sum(packs), nil
}

// Packs returns the account's unexpired packs in consumption order.
func (l *Ledger) Packs(ctx context.Context, account meter.Key) ([]Pack, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	key := storageKey(account)
	v, err := kv.Load(ctx, l.kv, key)
	if err != nil {
		return nil, err
	}
	if v.Corrupt {
		l.corrupt(ctx, key)
	}
	return live(l.decode(ctx, key, v.Data).Packs, l.now()), nil
}

// Grant appends a new pack. A nil expiresAt never expires.
func (l *Ledger) Grant(ctx context.Context, account meter.Key, unitsTenths int64, expiresAt *time.Time) (Pack, error) {
	if err := account.Validate(); err != nil {
		return Pack{}, err
	}
	if unitsTenths <= 0 {
		return Pack{}, fmt.Errorf("%w: units must be positive, got %d", ErrInvalidGrant, unitsTenths)
	}
	now := l.now().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return Pack{}, fmt.Errorf("%w: expiry %s is not in the future", ErrInvalidGrant, expiresAt.Format(time.RFC3339))
	}

	pack := Pack{
		ID:          l.newID(),
		UnitsTenths: unitsTenths,
		CreatedAt:   now,
	}
	if expiresAt != nil {
		exp := expiresAt.UTC()
		pack.ExpiresAt = &exp
	}

	key := storageKey(account)
	_, err := kv.Update(ctx, l.kv, key, 0, func(cur []byte) ([]byte, error) {
		doc := l.decode(ctx, key, cur)
		packs := live(doc.Packs, now)
		if balance := sum(packs); unitsTenths > math.MaxInt64-balance {
			return nil, fmt.Errorf("%w: balance %d cannot take %d more", ErrInvalidGrant, balance, unitsTenths)
		}
		doc.Packs = append(packs, pack)
		return json.Marshal(doc)
	}, l.updateOptions(ctx)...)
	if err != nil {
		return Pack{}, err
	}

	l.logger.InfoContext(ctx, "credits granted",
		logger.Account(account),
		slog.String("pack_id", pack.ID),
		logger.Tenths("units", unitsTenths),
	)
	return pack, nil
}

// Consume spends exactly amountTenths from the account, soonest expiring
// packs first. A balance below the amount fails with ErrInsufficientCredits
// and writes nothing. A repeated operationID returns the settled result with
// Idempotent set. An amount of zero succeeds without writing.
func (l *Ledger) Consume(ctx context.Context, account meter.Key, amountTenths int64, operationID string) (ConsumptionResult, error) {
	return l.consume(ctx, account, amountTenths, operationID, false)
}

// ConsumeAvailable is Consume that spends whatever is available, up to
// amountTenths, instead of failing on a short balance.
func (l *Ledger) ConsumeAvailable(ctx context.Context, account meter.Key, amountTenths int64, operationID string) (ConsumptionResult, error) {
	return l.consume(ctx, account, amountTenths, operationID, true)
}

func (l *Ledger) consume(ctx context.Context, account meter.Key, amount int64, operationID string, clamp bool) (ConsumptionResult, error) {
	if err := account.Validate(); err != nil {
		return ConsumptionResult{}, err
	}
	if err := meter.ValidateAmount(amount); err != nil {
		return ConsumptionResult{}, err
	}
	if operationID == "" {
		return ConsumptionResult{}, ErrOperationIDMissing
	}

	if res, ok, err := l.replay(ctx, account, operationID); err != nil || ok {
		return res, err
	}

	if amount == 0 {
		balance, err := l.Balance(ctx, account)
		if err != nil {
			return ConsumptionResult{}, err
		}
		return ConsumptionResult{RemainingTenths: balance, Breakdown: []PackConsumption{}}, nil
	}

	key := storageKey(account)
	var res ConsumptionResult
	_, err := kv.Update(ctx, l.kv, key, 0, func(cur []byte) ([]byte, error) {
		packs := live(l.decode(ctx, key, cur).Packs, l.now())
		available := sum(packs)

		want := amount
		if available < want {
			if !clamp {
				return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCredits, available, want)
			}
			want = available
		}

		rest, breakdown, taken := drain(packs, want)
		if breakdown == nil {
			breakdown = []PackConsumption{}
		}
		res = ConsumptionResult{
			TotalConsumedTenths: taken,
			RemainingTenths:     available - taken,
			Breakdown:           breakdown,
		}
		return json.Marshal(document{Packs: rest})
	}, l.updateOptions(ctx)...)
	if err != nil {
		return ConsumptionResult{}, err
	}

	// The pack write has landed; a failed marker write only weakens retry
	// protection for this operation, so it is logged rather than returned.
	if _, created, err := l.recorder.RecordSettlement(ctx, account, operationID, res.TotalConsumedTenths, res); err != nil {
		l.logger.ErrorContext(ctx, "failed to record credit settlement",
			logger.Account(account),
			logger.OperationID(operationID),
			logger.Error(err),
		)
	} else if !created {
		l.logger.WarnContext(ctx, "operation settled concurrently",
			logger.Account(account),
			logger.OperationID(operationID),
		)
	}

	l.logger.InfoContext(ctx, "credits consumed",
		logger.Account(account),
		logger.OperationID(operationID),
		logger.Tenths("consumed", res.TotalConsumedTenths),
		logger.Tenths("remaining", res.RemainingTenths),
	)
	return res, nil
}

// Settled reports whether operationID has already consumed credits from the
// account.
func (l *Ledger) Settled(ctx context.Context, account meter.Key, operationID string) (bool, error) {
	if err := account.Validate(); err != nil {
		return false, err
	}
	_, ok, err := l.replay(ctx, account, operationID)
	return ok, err
}

func (l *Ledger) replay(ctx context.Context, account meter.Key, operationID string) (ConsumptionResult, bool, error) {
	rec, err := l.recorder.IsSettled(ctx, account, operationID)
	if err != nil || rec == nil {
		return ConsumptionResult{}, false, err
	}
	var res ConsumptionResult
	if err := rec.Decode(&res); err != nil {
		return ConsumptionResult{}, false, errors.Join(meter.ErrServerError, err)
	}
	res.Idempotent = true
	return res, true, nil
}

func (l *Ledger) decode(ctx context.Context, key string, data []byte) document {
	var doc document
	if data == nil {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		l.corrupt(ctx, key)
		return document{}
	}
	return doc
}

func (l *Ledger) updateOptions(ctx context.Context) []kv.UpdateOption {
	return []kv.UpdateOption{
		kv.WithRetries(l.retries),
		kv.WithConflictHook(l.onConflict),
		kv.WithCorruptHook(func(key string) { l.corrupt(ctx, key) }),
	}
}

func (l *Ledger) corrupt(ctx context.Context, key string) {
	l.logger.WarnContext(ctx, "credit packs unreadable, treating as empty", logger.Key(key))
}

func storageKey(account meter.Key) string {
	return "credits:" + account.String()
}
