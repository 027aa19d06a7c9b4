// Package client implements the statement lifecycle for the Helio engine's
// asynchronous, poll-based execution protocol.
//
// A Statement is bound to a Conn and drives one execution at a time:
// submission, query/update classification, row iteration, warning
// accumulation, progress reporting, cancellation, and teardown. The wire
// protocol itself lives behind the ExecSession and Conn contracts; this
// package never talks to the network directly.
//
// One goroutine executes per statement, but Cancel and Close are safe to
// call concurrently from others: all shared state lives in atomic cells, so
// teardown runs exactly once and a failing execution never leaks its
// session.
package client
