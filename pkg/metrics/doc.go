// Package metrics exposes Prometheus collectors for charge outcomes.
//
// Metrics implements gate.Metrics and provides compare-and-swap conflict
// hooks for the ledger and window stores:
//
//	m, err := metrics.New(prometheus.DefaultRegisterer, metrics.Config{ServiceName: "meterd"})
//
//	g := gate.New(catalog, ledger, windows, recorder, gate.WithMetrics(m))
//	ledger := credits.NewLedger(store, recorder, credits.WithConflictHook(m.ConflictHook("credits")))
//
// Label values are low cardinality: sources, rejection reasons and component
// names. Account keys and operation ids are never used as labels.
package metrics
