package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/charges"
	"github.com/dmitrymomot/meterkit/pkg/entitlements"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// DefaultQuotaFeature is the feature key of the monthly credits window.
const DefaultQuotaFeature = "credits"

// Gate runs the credits-then-quota charge flow.
type Gate struct {
	resolver     Resolver
	plans        entitlements.PlanResolver
	ledger       Ledger
	windows      *usage.Store
	recorder     *charges.Recorder
	metrics      Metrics
	logger       *slog.Logger
	now          func() time.Time
	quotaFeature string
}

// Option configures a Gate.
type Option func(*Gate)

// WithPlanResolver sets how an account's plan id is found. The default reads
// it from the context (entitlements.SetPlanToContext).
func WithPlanResolver(fn entitlements.PlanResolver) Option {
	return func(g *Gate) {
		if fn != nil {
			g.plans = fn
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(g *Gate) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithQuotaFeature renames the monthly credits window.
func WithQuotaFeature(feature string) Option {
	return func(g *Gate) {
		if feature != "" {
			g.quotaFeature = feature
		}
	}
}

// New creates a Gate. Settlement markers are written through recorder under
// their own scope, separate from the ledger's.
func New(resolver Resolver, ledger Ledger, windows *usage.Store, recorder *charges.Recorder, opts ...Option) *Gate {
	g := &Gate{
		resolver:     resolver,
		plans:        entitlements.ContextPlanResolver,
		ledger:       ledger,
		windows:      windows,
		recorder:     recorder.Scoped("gate"),
		metrics:      noopMetrics{},
		logger:       slog.Default(),
		now:          time.Now,
		quotaFeature: DefaultQuotaFeature,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// charge carries one run of the flow.
type charge struct {
	account     meter.Key
	cost        int64
	operationID string

	ent      entitlements.PlanEntitlements
	quotaKey string
	window   time.Duration
	used     int64
	outcome  Outcome
	replayed bool
}

// AuthorizeAndCharge charges costTenths to the account's credits when the
// balance covers it, otherwise to the monthly quota. It fails with
// ErrInsufficientQuota when neither source can pay. A repeated operationID
// returns the first Outcome with Idempotent set.
func (g *Gate) AuthorizeAndCharge(ctx context.Context, account meter.Key, costTenths int64, operationID string) (Outcome, error) {
	if err := account.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := meter.ValidateAmount(costTenths); err != nil {
		return Outcome{}, err
	}
	if operationID == "" {
		return Outcome{}, ErrOperationIDMissing
	}

	ctx = logger.WithOperation(ctx, account, operationID)

	if out, ok, err := g.replay(ctx, account, operationID); err != nil || ok {
		return out, err
	}

	c := &charge{account: account, cost: costTenths, operationID: operationID}
	for st := stateStart; st != stateSettled; {
		next, err := g.step(ctx, c, st)
		if err != nil {
			if errors.Is(err, meter.ErrInsufficientQuota) {
				g.metrics.ChargeRejected(meter.CodeInsufficientQuota)
				g.logger.InfoContext(ctx, "charge rejected", logger.Tenths("cost", costTenths), logger.Error(err))
			}
			return Outcome{}, err
		}
		g.logger.DebugContext(ctx, "charge transition",
			slog.String("from", string(st)),
			slog.String("to", string(next)),
		)
		st = next
	}

	if _, created, err := g.recorder.RecordSettlement(ctx, account, operationID, costTenths, c.outcome); err != nil {
		g.logger.ErrorContext(ctx, "failed to record charge settlement", logger.Error(err))
	} else if !created {
		g.logger.WarnContext(ctx, "operation settled concurrently")
	}

	if c.replayed {
		c.outcome.Idempotent = true
		g.metrics.ChargeReplayed()
		g.logger.InfoContext(ctx, "charge replayed from ledger", logger.Source(string(c.outcome.Source)))
		return c.outcome, nil
	}

	g.metrics.ChargeSettled(string(c.outcome.Source), costTenths)
	g.logger.InfoContext(ctx, "charge settled",
		logger.Source(string(c.outcome.Source)),
		logger.Tenths("cost", costTenths),
		logger.Tenths("remaining", c.outcome.RemainingTenths),
	)
	return c.outcome, nil
}

func (g *Gate) step(ctx context.Context, c *charge, st state) (state, error) {
	switch st {
	case stateStart:
		ent, err := g.entitlements(ctx, c.account)
		if err != nil {
			return "", err
		}
		now := g.now()
		c.ent = ent
		c.quotaKey = usage.Key(g.quotaFeature, c.account, usage.Monthly, now)
		c.window = usage.Monthly.Remaining(now)
		return stateCheckCredits, nil

	case stateCheckCredits:
		// Credits spent by an earlier attempt whose gate marker never landed
		// are replayed by Consume, whatever the balance is now.
		settled, err := g.ledger.Settled(ctx, c.account, c.operationID)
		if err != nil {
			return "", err
		}
		if settled {
			return stateChargeCredits, nil
		}
		balance, err := g.ledger.Balance(ctx, c.account)
		if err != nil {
			return "", err
		}
		if balance >= c.cost {
			return stateChargeCredits, nil
		}
		// A partial balance is left alone; the whole cost goes to quota.
		return stateCheckQuota, nil

	case stateChargeCredits:
		res, err := g.ledger.Consume(ctx, c.account, c.cost, c.operationID)
		if errors.Is(err, meter.ErrInsufficientCredits) {
			// Spent by a concurrent charge since the balance check.
			return stateCheckQuota, nil
		}
		if err != nil {
			return "", err
		}
		c.replayed = res.Idempotent
		c.outcome = Outcome{
			Source:          SourceCredits,
			CreditsTenths:   res.TotalConsumedTenths,
			RemainingTenths: res.RemainingTenths,
			Breakdown:       res.Breakdown,
		}
		return stateSettled, nil

	case stateCheckQuota:
		limit := c.ent.MonthlyCreditsTenths
		u, err := g.windows.Get(ctx, c.quotaKey, limit)
		if err != nil {
			return "", err
		}
		c.used = u.Used
		if limit != entitlements.Unlimited && u.Used+c.cost > limit {
			return stateReject, nil
		}
		return stateChargeQuota, nil

	case stateChargeQuota:
		limit := c.ent.MonthlyCreditsTenths
		w, err := g.windows.IncrementWithin(ctx, c.quotaKey, c.cost, limit, c.window)
		if errors.Is(err, usage.ErrLimitExceeded) {
			return stateReject, nil
		}
		if err != nil {
			return "", err
		}
		c.used = w.Count
		c.outcome = Outcome{
			Source:          SourceQuota,
			QuotaTenths:     c.cost,
			Quota:           true,
			RemainingTenths: w.Usage(limit).Remaining,
		}
		return stateSettled, nil

	case stateReject:
		return "", fmt.Errorf("%w: used %d, cost %d, limit %d",
			ErrInsufficientQuota, c.used, c.cost, c.ent.MonthlyCreditsTenths)
	}

	return "", fmt.Errorf("%w: unknown charge state %q", meter.ErrServerError, st)
}

func (g *Gate) replay(ctx context.Context, account meter.Key, operationID string) (Outcome, bool, error) {
	rec, err := g.recorder.IsSettled(ctx, account, operationID)
	if err != nil || rec == nil {
		return Outcome{}, false, err
	}
	var out Outcome
	if err := rec.Decode(&out); err != nil {
		return Outcome{}, false, errors.Join(meter.ErrServerError, err)
	}
	out.Idempotent = true
	g.metrics.ChargeReplayed()
	g.logger.InfoContext(ctx, "charge replayed", logger.Source(string(out.Source)))
	return out, true, nil
}

func (g *Gate) entitlements(ctx context.Context, account meter.Key) (entitlements.PlanEntitlements, error) {
	plan, err := g.plans(ctx, account)
	if err != nil {
		return entitlements.PlanEntitlements{}, fmt.Errorf("gate: resolve plan: %w", err)
	}
	return g.resolver.Resolve(account.Class, plan)
}

func validateFeature(feature string) error {
	if feature == "" || strings.ContainsAny(feature, ": \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidFeature, feature)
	}
	return nil
}
