// Package enrich turns a search listing record into a fully attributed asset:
// it fetches the detail record, resolves contributor gamertags, service tags
// and emblems, credits "343 Industries" when attribution is incomplete,
// normalizes tags and upserts everything in one store transaction.
//
// Upstream failures are returned wrapped in *Error naming the asset and the
// step; nothing is swallowed except skip-listed assets (ErrSkipped).
package enrich
