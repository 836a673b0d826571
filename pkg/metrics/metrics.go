package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config sets the constant labels of every collector.
type Config struct {
	Namespace   string `env:"METRICS_NAMESPACE" envDefault:"meter"`
	ServiceName string `env:"APP_SERVICE" envDefault:"meterd"`
	Environment string `env:"APP_ENV" envDefault:"development"`
}

// Metrics holds the collectors.
type Metrics struct {
	charges         *prometheus.CounterVec
	chargedTenths   *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	replays         prometheus.Counter
	conflicts       *prometheus.CounterVec
	conflictRetries *prometheus.HistogramVec
}

// New creates and registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, cfg Config) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = "meter"
	}
	constLabels := prometheus.Labels{
		"service": orDefault(cfg.ServiceName, "meterd"),
		"env":     orDefault(cfg.Environment, "unknown"),
	}

	m := &Metrics{
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "charges_total",
			Help:        "Settled charges by paying source.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		chargedTenths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "charged_tenths_total",
			Help:        "Charged amount in tenths of a credit by paying source.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "rejections_total",
			Help:        "Rejected charges and requests by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "replays_total",
			Help:        "Charges answered from an earlier settlement.",
			ConstLabels: constLabels,
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "store_conflicts_total",
			Help:        "Lost compare-and-swap writes by component.",
			ConstLabels: constLabels,
		}, []string{"component"}),
		conflictRetries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Name:        "store_conflict_attempt",
			Help:        "Attempt number at which a compare-and-swap was lost.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8},
			ConstLabels: constLabels,
		}, []string{"component"}),
	}

	for _, c := range []prometheus.Collector{
		m.charges, m.chargedTenths, m.rejections, m.replays, m.conflicts, m.conflictRetries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Join(ErrRegistration, err)
		}
	}
	return m, nil
}

// ChargeSettled counts a settled charge.
func (m *Metrics) ChargeSettled(source string, tenths int64) {
	m.charges.WithLabelValues(source).Inc()
	m.chargedTenths.WithLabelValues(source).Add(float64(tenths))
}

// ChargeRejected counts a rejection.
func (m *Metrics) ChargeRejected(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// ChargeReplayed counts an idempotent replay.
func (m *Metrics) ChargeReplayed() {
	m.replays.Inc()
}

// ConflictHook returns a kv conflict hook labelled with component.
func (m *Metrics) ConflictHook(component string) func(key string, attempt int) {
	counter := m.conflicts.WithLabelValues(component)
	observer := m.conflictRetries.WithLabelValues(component)
	return func(_ string, attempt int) {
		counter.Inc()
		observer.Observe(float64(attempt))
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
