package client

import "fmt"

// NotOpenError reports an operation against a closed statement or a
// statement whose connection has been closed.
type NotOpenError struct {
	What string // "statement" or "connection"
}

func (e *NotOpenError) Error() string {
	return fmt.Sprintf("%s is closed", e.What)
}

// InvalidArgumentError reports a rejected argument. The prior value is left
// unchanged. Detail defaults to the range violation message.
type InvalidArgumentError struct {
	Param  string
	Value  int64
	Detail string
}

func (e *InvalidArgumentError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = "must not be negative"
	}
	return fmt.Sprintf("%s %s: %d", e.Param, detail, e.Value)
}

// RemoteExecutionError is an engine-reported query failure, carrying the
// server error detail and the failing SQL text.
type RemoteExecutionError struct {
	QueryID string
	SQL     string
	Detail  *QueryError
}

func (e *RemoteExecutionError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("executing %q: %s", e.SQL, e.Detail.Error())
	}
	return e.Detail.Error()
}

func (e *RemoteExecutionError) Unwrap() error { return e.Detail }

// TransportError is a protocol or network fault that is not a SQL-semantic
// failure. It is never retried at this layer.
type TransportError struct {
	SQL string
	Err error
}

func (e *TransportError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("executing %q: %s", e.SQL, e.Err)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnsupportedOperationError reports a deliberately unimplemented feature.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s not supported", e.Op)
}

// WrongStatementKindError reports a query-only call used on a statement that
// resolved to an update, or the reverse.
type WrongStatementKindError struct {
	SQL     string
	IsQuery bool // what the statement actually resolved to
}

func (e *WrongStatementKindError) Error() string {
	if e.IsQuery {
		return fmt.Sprintf("SQL is not an update statement: %s", e.SQL)
	}
	return fmt.Sprintf("SQL statement is not a query: %s", e.SQL)
}
