package main

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/meterkit/pkg/adjust"
	"github.com/dmitrymomot/meterkit/pkg/audit"
	"github.com/dmitrymomot/meterkit/pkg/charges"
	"github.com/dmitrymomot/meterkit/pkg/config"
	"github.com/dmitrymomot/meterkit/pkg/credits"
	"github.com/dmitrymomot/meterkit/pkg/entitlements"
	"github.com/dmitrymomot/meterkit/pkg/gate"
	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/metrics"
	"github.com/dmitrymomot/meterkit/pkg/mongo"
	"github.com/dmitrymomot/meterkit/pkg/pg"
	"github.com/dmitrymomot/meterkit/pkg/redis"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

//go:embed entitlements.yaml
var defaultEntitlements []byte

// app holds the wired components and the resources they own.
type app struct {
	cfg appConfig
	log *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	checks   []httpserver.Check
	closers  []func(context.Context) error

	catalog *entitlements.Catalog
	ledger  *credits.Ledger
	gate    *gate.Gate
	adjust  *adjust.Service
}

func newApp(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.close(context.WithoutCancel(ctx)))
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics, err = metrics.New(a.registry, metrics.Config{ServiceName: cfg.Service, Environment: cfg.Env})
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.catalog, err = a.openCatalog(ctx)
	if err != nil {
		return nil, err
	}

	recorder, err := charges.NewRecorder(store, cfg.ChargeTTL, charges.WithLogger(log))
	if err != nil {
		return nil, err
	}

	a.ledger = credits.NewLedger(store, recorder,
		credits.WithLogger(log),
		credits.WithRetries(cfg.CASRetries),
		credits.WithConflictHook(a.metrics.ConflictHook("credits")),
	)

	windows := usage.NewStore(store,
		usage.WithLogger(log),
		usage.WithRetries(cfg.CASRetries),
		usage.WithConflictHook(a.metrics.ConflictHook("usage")),
	)

	a.gate = gate.New(a.catalog, a.ledger, windows, recorder,
		gate.WithLogger(log),
		gate.WithMetrics(a.metrics),
		gate.WithQuotaFeature(cfg.QuotaFeature),
	)

	auditLog, err := a.openAudit(ctx)
	if err != nil {
		return nil, err
	}
	a.adjust = adjust.New(a.ledger, auditLog, adjust.WithLogger(log))

	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition, so the audit
// writer flushes before its database connection goes away.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, fn := range slices.Backward(a.closers) {
		errs = append(errs, fn(ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) openStore(ctx context.Context) (kv.Store, error) {
	if a.cfg.Store != storeRedis {
		ms := kv.NewMemoryStore()
		a.onClose(func(context.Context) error {
			ms.Close()
			return nil
		})
		a.log.WarnContext(ctx, "using process-local store, balances are lost on restart",
			logger.Component("meterd"))
		return ms, nil
	}

	var rc redis.Config
	if err := config.Load(&rc); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, rc)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return client.Close() })
	store := redis.NewStoreWithConfig(client, rc)
	a.checks = append(a.checks, httpserver.Check{Name: "redis", Fn: store.Healthcheck})
	return store, nil
}

func (a *app) openCatalog(ctx context.Context) (*entitlements.Catalog, error) {
	if a.cfg.EntitlementsFile == "" {
		src, err := entitlements.ParseYAML(defaultEntitlements)
		if err != nil {
			return nil, err
		}
		return entitlements.NewCatalog(ctx, src)
	}
	return entitlements.NewCatalog(ctx, entitlements.NewFileSource(a.cfg.EntitlementsFile))
}

func (a *app) openAudit(ctx context.Context) (*audit.Logger, error) {
	var storage audit.BatchStorage
	switch a.cfg.Audit {
	case auditPostgres:
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := pg.Migrate(ctx, pool, pc, a.log); err != nil {
			return nil, err
		}
		a.checks = append(a.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		storage = audit.NewPostgresStorage(pool)

	case auditMongo:
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, mc)
		if err != nil {
			return nil, err
		}
		a.onClose(func(ctx context.Context) error { return db.Client().Disconnect(ctx) })
		a.checks = append(a.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(db.Client())})
		storage = audit.NewMongoStorage(db, a.cfg.AuditCollection)

	default:
		storage = audit.NewMemoryStorage()
	}

	writer, stop := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BufferSize:   a.cfg.AuditBufferSize,
		BatchSize:    a.cfg.AuditBatchSize,
		BatchTimeout: a.cfg.AuditBatchTimeout,
	})
	a.onClose(stop)

	var opts []audit.Option
	if a.cfg.AuditHashKey != "" {
		hasher, err := audit.NewBlake2bHasher([]byte(a.cfg.AuditHashKey))
		if err != nil {
			return nil, err
		}
		opts = append(opts, audit.WithHasher(hasher))
	}
	return audit.NewLogger(writer, opts...), nil
}
