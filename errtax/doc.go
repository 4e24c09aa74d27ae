// Package errtax is the core's error taxonomy.
//
// Every mutating operation in corerepo returns one of the named sentinel
// errors below, optionally wrapped with structured detail via
// github.com/goliatone/go-errors so callers driving an HTTP/RPC boundary
// can map categories to status codes without string-matching error text.
package errtax
