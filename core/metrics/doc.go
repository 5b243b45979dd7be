// Package metrics declares the Prometheus collectors of the sync pipeline.
//
// Collectors are registered on the default registry and exposed by the
// operator server under /metrics.
package metrics
