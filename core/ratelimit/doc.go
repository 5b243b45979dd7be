// Package ratelimit spaces outbound upstream requests with an adaptive delay.
//
// The delay grows with the number of consecutive requests (capped at 2x),
// permanently for the rest of a run once any request observed HTTP 429, and,
// for high volume runs, with the time spent in the run (capped at 2x after
// 15 minutes). State is owned by one Limiter instance and reset explicitly at
// phase boundaries.
package ratelimit
