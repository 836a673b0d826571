package adjust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/audit"
	"github.com/dmitrymomot/meterkit/pkg/credits"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// EventType of emitted audit events.
const EventType = "credits.adjusted"

// Audit actions.
const (
	ActionGrant  = "grant"
	ActionDeduct = "deduct"
)

// Ledger is the part of the credit ledger used for adjustments.
type Ledger interface {
	Balance(ctx context.Context, account meter.Key) (int64, error)
	Grant(ctx context.Context, account meter.Key, unitsTenths int64, expiresAt *time.Time) (credits.Pack, error)
	Consume(ctx context.Context, account meter.Key, amountTenths int64, operationID string) (credits.ConsumptionResult, error)
	ConsumeAvailable(ctx context.Context, account meter.Key, amountTenths int64, operationID string) (credits.ConsumptionResult, error)
}

// Auditor receives adjustment events. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, eventType, action string, opts ...audit.EventOption) error
}

// Result reports an adjustment. Actual differs from Requested only for a
// non-strict deduction that hit a short balance.
type Result struct {
	Requested        int64  `json:"requested_tenths"`
	Actual           int64  `json:"actual_tenths"`
	RemainingBalance int64  `json:"remaining_balance_tenths"`
	PackID           string `json:"pack_id,omitempty"`      // grants only
	OperationID      string `json:"operation_id,omitempty"` // deductions only
	Idempotent       bool   `json:"idempotent,omitempty"`
}

// Service performs audited adjustments.
type Service struct {
	ledger  Ledger
	auditor Auditor
	logger  *slog.Logger
	now     func() time.Time
	newOpID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source of audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service.
func New(ledger Ledger, auditor Auditor, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		auditor: auditor,
		logger:  slog.Default(),
		now:     time.Now,
		newOpID: func() string { return "admin-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeductOption configures DeductCredits.
type DeductOption func(*deductConfig)

type deductConfig struct {
	strict      bool
	operationID string
}

// NonStrict deducts whatever is available, up to the requested amount.
func NonStrict() DeductOption {
	return func(c *deductConfig) { c.strict = false }
}

// WithOperationID makes a deduction idempotent under id. Without it every
// call deducts.
func WithOperationID(id string) DeductOption {
	return func(c *deductConfig) { c.operationID = id }
}

// GrantCredits adds a pack of amountTenths to the account. A nil expiresAt
// never expires.
func (s *Service) GrantCredits(ctx context.Context, actor string, account meter.Key, amountTenths int64, expiresAt *time.Time) (Result, error) {
	if err := validate(actor, account, amountTenths); err != nil {
		return Result{}, err
	}

	pack, err := s.ledger.Grant(ctx, account, amountTenths, expiresAt)
	if err != nil {
		return Result{}, err
	}

	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Requested:        amountTenths,
		Actual:           amountTenths,
		RemainingBalance: balance,
		PackID:           pack.ID,
	}

	opts := []audit.EventOption{audit.WithDetail("pack_id", pack.ID)}
	if pack.ExpiresAt != nil {
		opts = append(opts, audit.WithDetail("expires_at", pack.ExpiresAt.Format(time.RFC3339)))
	}
	s.emit(ctx, ActionGrant, actor, account, res, opts...)
	return res, nil
}

// DeductCredits removes amountTenths from the account. In strict mode, the
// default, a short balance fails with meter.ErrInsufficientCredits and
// nothing is deducted.
func (s *Service) DeductCredits(ctx context.Context, actor string, account meter.Key, amountTenths int64, opts ...DeductOption) (Result, error) {
	if err := validate(actor, account, amountTenths); err != nil {
		return Result{}, err
	}

	cfg := deductConfig{strict: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.operationID == "" {
		cfg.operationID = s.newOpID()
	}

	consume := s.ledger.Consume
	if !cfg.strict {
		consume = s.ledger.ConsumeAvailable
	}

	cr, err := consume(ctx, account, amountTenths, cfg.operationID)
	if err != nil {
		return Result{}, fmt.Errorf("adjust: deduct %d from %s: %w", amountTenths, account, err)
	}

	res := Result{
		Requested:        amountTenths,
		Actual:           cr.TotalConsumedTenths,
		RemainingBalance: cr.RemainingTenths,
		OperationID:      cfg.operationID,
		Idempotent:       cr.Idempotent,
	}
	if !cr.Idempotent {
		s.emit(ctx, ActionDeduct, actor, account, res,
			audit.WithDetail("strict", cfg.strict),
			audit.WithDetail("operation_id", cfg.operationID),
		)
	}
	return res, nil
}

func (s *Service) emit(ctx context.Context, action, actor string, account meter.Key, res Result, opts ...audit.EventOption) {
	s.logger.InfoContext(ctx, "credits adjusted",
		slog.String("action", action),
		logger.Actor(actor),
		logger.Account(account),
		logger.Tenths("requested", res.Requested),
		logger.Tenths("actual", res.Actual),
	)

	if s.auditor == nil {
		return
	}
	opts = append([]audit.EventOption{
		audit.WithActor(actor),
		audit.WithAccount(account),
		audit.WithDetail("requested_tenths", res.Requested),
		audit.WithDetail("actual_tenths", res.Actual),
		audit.WithDetail("remaining_balance_tenths", res.RemainingBalance),
		audit.WithDetail("timestamp", s.now().UTC().Format(time.RFC3339Nano)),
	}, opts...)
	if err := s.auditor.Log(ctx, EventType, action, opts...); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			slog.String("action", action),
			logger.Account(account),
			logger.Error(err),
		)
	}
}

func validate(actor string, account meter.Key, amount int64) error {
	if actor == "" {
		return ErrActorRequired
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w, got %d", ErrAmountRequired, amount)
	}
	return nil
}
