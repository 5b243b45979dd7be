// Package credentials supplies the Spartan/clearance token pair used for
// authenticated upstream calls.
//
// Token issuance (the OAuth, XSTS and Spartan exchange) is owned by an
// external auth service. This package only reads what that service produced:
// either a static pair from configuration or the per-user row of the oauth
// table. Absence is reported as ErrNoCredentials.
package credentials
