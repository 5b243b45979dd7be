// Package middleware groups the fiber middleware of the operator server.
//
//   - auth: rejects requests without the configured X-API-Key. Paths such as
//     /metrics can be exempted so scrapers need no key.
//   - rayid: assigns every request a ray ID (reusing an incoming X-Ray-ID)
//     which logger.WithRayID then attaches to handler log lines.
//
// cmd/start registers rayid first so that auth failures are logged with
// their ray ID.
package middleware
