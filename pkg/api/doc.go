// Package api defines the request and response messages of the split ledger
// RPC services. Messages travel as JSON through Codec.
package api
