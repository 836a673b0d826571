package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/gate"
	"github.com/dmitrymomot/meterkit/pkg/metrics"
)

var _ gate.Metrics = (*metrics.Metrics)(nil)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, metrics.Config{ServiceName: "test", Environment: "test"})
	require.NoError(t, err)

	m.ChargeSettled("credits", 5)
	m.ChargeSettled("credits", 10)
	m.ChargeSettled("quota", 30)
	m.ChargeRejected("insufficient_quota")
	m.ChargeReplayed()
	m.ChargeReplayed()

	hook := m.ConflictHook("credits")
	hook("credits:a", 0)
	hook("credits:a", 1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{
		"meter_charges_total",
		"meter_charged_tenths_total",
		"meter_rejections_total",
		"meter_replays_total",
		"meter_store_conflicts_total",
		"meter_store_conflict_attempt",
	} {
		assert.True(t, names[n], n)
	}

	assert.InDelta(t, 2, counterValue(t, reg, "meter_charges_total", "source", "credits"), 0)
	assert.InDelta(t, 15, counterValue(t, reg, "meter_charged_tenths_total", "source", "credits"), 0)
	assert.InDelta(t, 30, counterValue(t, reg, "meter_charged_tenths_total", "source", "quota"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "meter_rejections_total", "reason", "insufficient_quota"), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "meter_replays_total", "", ""), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "meter_store_conflicts_total", "component", "credits"), 0)

	count, err := testutil.GatherAndCount(reg, "meter_store_conflicts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func counterValue(t *testing.T, g prometheus.Gatherer, name, label, value string) float64 {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg, metrics.Config{})
	require.NoError(t, err)

	_, err = metrics.New(reg, metrics.Config{})
	require.ErrorIs(t, err, metrics.ErrRegistration)
}

func TestNamespace(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, metrics.Config{Namespace: "billing"})
	require.NoError(t, err)
	m.ChargeReplayed()

	count, err := testutil.GatherAndCount(reg, "billing_replays_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
