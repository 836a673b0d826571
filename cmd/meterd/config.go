package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/logger"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"

	auditMemory   = "memory"
	auditPostgres = "postgres"
	auditMongo    = "mongo"
)

// appConfig is the meterd configuration. Backend specific settings
// (REDIS_*, PG_*, MONGODB_*) are loaded only for the selected backends.
type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_SERVICE" envDefault:"meterd"`

	Store      string        `env:"METER_STORE" envDefault:"memory"`
	ChargeTTL  time.Duration `env:"METER_CHARGE_TTL,required"`
	CASRetries int           `env:"METER_CAS_RETRIES" envDefault:"3"`

	EntitlementsFile  string `env:"METER_ENTITLEMENTS_FILE"`
	EntitlementsWatch bool   `env:"METER_ENTITLEMENTS_WATCH" envDefault:"true"`
	QuotaFeature      string `env:"METER_QUOTA_FEATURE" envDefault:"credits"`

	Audit             string        `env:"METER_AUDIT" envDefault:"memory"`
	AuditCollection   string        `env:"METER_AUDIT_COLLECTION" envDefault:"audit_logs"`
	AuditHashKey      string        `env:"METER_AUDIT_HASH_KEY"`
	AuditBufferSize   int           `env:"METER_AUDIT_BUFFER_SIZE" envDefault:"1000"`
	AuditBatchSize    int           `env:"METER_AUDIT_BATCH_SIZE" envDefault:"100"`
	AuditBatchTimeout time.Duration `env:"METER_AUDIT_BATCH_TIMEOUT" envDefault:"100ms"`

	Log  logger.Config
	HTTP httpserver.Config
}

func (c appConfig) Validate() error {
	var errs []error
	switch c.Store {
	case storeMemory, storeRedis:
	default:
		errs = append(errs, fmt.Errorf("METER_STORE: unknown backend %q", c.Store))
	}
	switch c.Audit {
	case auditMemory, auditPostgres, auditMongo:
	default:
		errs = append(errs, fmt.Errorf("METER_AUDIT: unknown backend %q", c.Audit))
	}
	if c.ChargeTTL <= 0 {
		errs = append(errs, errors.New("METER_CHARGE_TTL: must be positive"))
	}
	if c.CASRetries < 1 {
		errs = append(errs, errors.New("METER_CAS_RETRIES: must be at least 1"))
	}
	if len(c.AuditHashKey) > 64 {
		errs = append(errs, errors.New("METER_AUDIT_HASH_KEY: at most 64 bytes"))
	}
	var level slog.Level
	if c.Log.Level != "" && level.UnmarshalText([]byte(c.Log.Level)) != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", c.Log.Level))
	}
	switch logger.Format(strings.ToLower(c.Log.Format)) {
	case "", logger.FormatJSON, logger.FormatText:
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: unknown format %q", c.Log.Format))
	}
	if c.QuotaFeature == "" {
		errs = append(errs, errors.New("METER_QUOTA_FEATURE: must not be empty"))
	}
	return errors.Join(errs...)
}
