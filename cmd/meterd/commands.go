package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/meterkit/pkg/adjust"
	"github.com/dmitrymomot/meterkit/pkg/entitlements"
	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

type command func(ctx context.Context, a *app, args []string, out io.Writer) error

var commands = map[string]command{
	"serve":   serve,
	"balance": balance,
	"grant":   grant,
	"deduct":  deduct,
	"charge":  charge,
	"usage":   usageOverview,
}

var errUsage = errors.New("invalid arguments")

// serve exposes the operational endpoints and watches the entitlements file
// until ctx is cancelled.
func serve(ctx context.Context, a *app, _ []string, _ io.Writer) error {
	srv := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))
	handler := httpserver.Router(httpserver.RouterOptions{
		Logger:       a.log,
		Checks:       a.checks,
		CheckTimeout: a.cfg.HTTP.CheckTimeout,
		Metrics:      promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, handler) })
	if a.cfg.EntitlementsFile != "" && a.cfg.EntitlementsWatch {
		g.Go(func() error {
			return entitlements.Watch(ctx, a.catalog, a.cfg.EntitlementsFile, a.log)
		})
	}

	a.log.InfoContext(ctx, "meterd ready",
		logger.Component("meterd"),
		"store", a.cfg.Store,
		"audit", a.cfg.Audit,
	)
	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func balance(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	account := accountFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	total, err := a.ledger.Balance(ctx, *account)
	if err != nil {
		return report(out, err)
	}
	packs, err := a.ledger.Packs(ctx, *account)
	if err != nil {
		return report(out, err)
	}
	return write(out, map[string]any{
		"account":        account.String(),
		"balance":        meter.Whole(total),
		"balance_tenths": total,
		"packs":          packs,
	})
}

func grant(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	account := accountFlag(fs)
	tenths := fs.Int64("tenths", 0, "credits to grant, in tenths")
	actor := fs.String("actor", "", "admin performing the grant")
	expiresIn := fs.Duration("expires-in", 0, "pack lifetime; zero never expires")
	if err := parse(fs, args); err != nil {
		return err
	}

	var expiresAt *time.Time
	if *expiresIn > 0 {
		t := time.Now().Add(*expiresIn)
		expiresAt = &t
	}
	res, err := a.adjust.GrantCredits(ctx, *actor, *account, *tenths, expiresAt)
	if err != nil {
		return report(out, err)
	}
	return write(out, res)
}

func deduct(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("deduct", flag.ContinueOnError)
	account := accountFlag(fs)
	tenths := fs.Int64("tenths", 0, "credits to deduct, in tenths")
	actor := fs.String("actor", "", "admin performing the deduction")
	nonStrict := fs.Bool("non-strict", false, "deduct what is available instead of failing")
	opID := fs.String("op", "", "operation id; retries with the same id are not applied twice")
	if err := parse(fs, args); err != nil {
		return err
	}

	var opts []adjust.DeductOption
	if *nonStrict {
		opts = append(opts, adjust.NonStrict())
	}
	if *opID != "" {
		opts = append(opts, adjust.WithOperationID(*opID))
	}
	res, err := a.adjust.DeductCredits(ctx, *actor, *account, *tenths, opts...)
	if err != nil {
		return report(out, err)
	}
	return write(out, res)
}

func charge(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("charge", flag.ContinueOnError)
	account := accountFlag(fs)
	tenths := fs.Int64("tenths", 0, "cost in tenths")
	opID := fs.String("op", "", "operation id")
	plan := fs.String("plan", "", "plan id; empty uses the owner class default")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx = entitlements.SetPlanToContext(ctx, *plan)
	res, err := a.gate.AuthorizeAndCharge(ctx, *account, *tenths, *opID)
	if err != nil {
		return report(out, err)
	}
	return write(out, map[string]any{
		"outcome":    res,
		"idempotent": res.Idempotent,
	})
}

func usageOverview(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	account := accountFlag(fs)
	feature := fs.String("feature", a.cfg.QuotaFeature, "metered feature")
	period := fs.String("period", string(usage.Monthly), "daily or monthly")
	plan := fs.String("plan", "", "plan id; empty uses the owner class default")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx = entitlements.SetPlanToContext(ctx, *plan)
	u, err := a.gate.UsageOverview(ctx, *account, *feature, usage.Period(*period))
	if err != nil {
		return report(out, err)
	}
	return write(out, u)
}

// keyValue parses an account flag such as user:42.
type keyValue struct{ key *meter.Key }

func (v keyValue) String() string {
	if v.key == nil || v.key.ID == "" {
		return ""
	}
	return v.key.String()
}

func (v keyValue) Set(s string) error {
	k, err := meter.ParseKey(s)
	if err != nil {
		return err
	}
	*v.key = k
	return nil
}

func accountFlag(fs *flag.FlagSet) *meter.Key {
	k := new(meter.Key)
	fs.Var(keyValue{key: k}, "account", "account key, class:id (user:42, guest:abc)")
	return k
}

func parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	return nil
}

func write(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report writes the error code for scripts and returns err.
func report(out io.Writer, err error) error {
	_ = write(out, map[string]string{
		"error":   meter.Code(err),
		"message": err.Error(),
	})
	return err
}
