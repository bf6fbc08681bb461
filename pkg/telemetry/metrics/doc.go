// Package metrics provides Prometheus metrics collection for gemrelay.
//
// # Metrics Categories
//
//   - Request metrics: proxied request count, duration, in-flight requests,
//     upstream transport failures and fixed-body error responses
//   - Rotation metrics: selection outcomes, served index, attempts per
//     request, exhausted retries, store reachability and credential count
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// Passed to the rotator and the store prober
//	rotator := rotation.New(creds, store, rotation.Config{Metrics: collector})
//
//	// Served on the admin listener
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// The served index label is bounded by the credential count and capped at
// 256 distinct values; further indexes are aggregated into "other". No label
// ever carries a credential, path or client address.
package metrics
