// Package daq owns a single acquisition session: it frames received bytes,
// decodes encoder and IRIG packets, keeps the run clock, appends the decoded
// records to the session series, and hands each record to a persistence
// sink. Series are consumed in bulk by the analysis package once the
// session ends.
//
// A Session is not safe for concurrent use. The receive loop is its only
// caller.
package daq
