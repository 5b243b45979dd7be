// Package server holds the operator HTTP server configuration.
//
// The start command serves run status, run triggers and metrics on this port,
// protected by the configured API key.
package server
