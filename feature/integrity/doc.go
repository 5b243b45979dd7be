// Package integrity provides health checks for the sync's infrastructure.
//
// # Checks Provided
//
//   - Structure: the report folders exist in the storage bucket.
//   - SkipList: the skip list object exists and parses.
//   - Schema: the connected database has every table and column the sync
//     models declare, with matching types where a model pins one.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/structure : Runs structure check (supports ?fix=true).
//   - GET /integrity/skiplist : Runs skip list check.
//   - GET /integrity/schema : Runs schema check.
package integrity
