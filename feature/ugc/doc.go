// Package ugc runs the UGC sync pipeline as a service.
//
// Build assembles the fetch clients, upstream API, store, enricher, walker,
// orchestrator and reconciler. The Service runs one sync or reconciliation at
// a time, keeps the last report of each, and archives reports to the object
// store when one is configured. Handler exposes status and triggers over HTTP:
//
//	GET  /sync/status
//	GET  /sync/reports
//	POST /sync/run[?kind=map]
//	POST /sync/reconcile/:kind[?apply=true]
package ugc
