// Package schema validates RPC payloads against a JSON Schema chosen by the
// target service id.
//
// Schemas are compiled once when the Registry is built, so a broken schema
// fails startup instead of a request. A Validator then checks the data part of
// each request and reports every violation, not just the first. A service id
// with no registered schema is rejected with ERR11201 rather than let
// through unvalidated.
package schema
