// Package fetch is the rate-limited HTTP client used for every upstream call.
//
// Each request waits for the shared ratelimit.Limiter, runs under a per-request
// timeout and is fully read before returning. DoWithRetry layers the retry
// policy on top: token refresh on 401, long increasing backoff on 429 (which
// also slows down the rest of the run), exponential backoff on anything else.
// The attempt budget travels with the context (WithAttempts) so page-level
// recovery can raise it for every call made while reprocessing a page.
package fetch
