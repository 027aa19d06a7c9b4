package client

import (
	"context"
	"fmt"
)

// SessionProperties carries per-statement engine session properties, sent
// with the initial query submission.
type SessionProperties map[string]string

// QueryError is a failure reported by the engine for one query.
type QueryError struct {
	Code     int
	Name     string
	Category string // USER_ERROR, INTERNAL_ERROR, INSUFFICIENT_RESOURCES, EXTERNAL
	Message  string
}

func (e *QueryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("query failed (%s): %s", e.Name, e.Message)
	}
	return fmt.Sprintf("query failed: %s", e.Message)
}

// Warning is a non-fatal condition reported by the engine while a query runs.
type Warning struct {
	Code    int
	Name    string
	Message string
}

// QueryStats is a point-in-time snapshot of query progress, pushed to a
// registered progress monitor while rows are consumed.
type QueryStats struct {
	QueryID           string
	State             string
	Scheduled         bool
	Nodes             int
	TotalSplits       int
	QueuedSplits      int
	RunningSplits     int
	CompletedSplits   int
	CPUTimeMillis     int64
	WallTimeMillis    int64
	QueuedTimeMillis  int64
	ElapsedTimeMillis int64
	ProcessedRows     int64
	ProcessedBytes    int64
	PeakMemoryBytes   int64
}

// ProgressPercentage reports how much of the query has completed, when the
// engine has scheduled enough work to estimate it.
func (s QueryStats) ProgressPercentage() (float64, bool) {
	if !s.Scheduled || s.TotalSplits == 0 {
		return 0, false
	}
	return 100.0 * float64(s.CompletedSplits) / float64(s.TotalSplits), true
}

// ProgressMonitor receives query progress snapshots.
type ProgressMonitor func(QueryStats)

// StatusInfo describes the engine-side state of an execution at one poll.
// UpdateType is empty for queries that produce rows. UpdateCount is nil when
// the engine did not report one.
type StatusInfo struct {
	QueryID     string
	State       string
	UpdateType  string
	UpdateCount *int64
	Err         *QueryError
	Warnings    []Warning
	Stats       QueryStats
}

// ExecSession is one server-side run of a statement, polled until terminal.
// Implementations own the wire protocol; this package only consumes the
// contract. Close must be idempotent, cancels the remote query when it is
// still running, and leaves the status accessors readable.
type ExecSession interface {
	QueryID() string

	// IsFinished reports whether the session has reached a terminal state.
	IsFinished() bool

	// CurrentStatus returns the status observed at the most recent poll.
	CurrentStatus() StatusInfo

	// FinalStatus returns the terminal status. Only valid once IsFinished
	// reports true or Advance has returned false.
	FinalStatus() StatusInfo

	// Columns returns the result column names, available once the engine has
	// produced its first result batch.
	Columns() []string

	// CurrentRows returns the rows delivered by the most recent poll.
	CurrentRows() [][]any

	// Advance polls the engine for the next result batch. It returns false
	// once the session is terminal and no further rows will arrive.
	Advance(ctx context.Context) (bool, error)

	// CancelLeafStage cancels only the leaf stage of the distributed plan,
	// halting speculative work while keeping produced output consumable.
	CancelLeafStage()

	Close()
}

// Conn is the owning connection contract a Statement needs: query submission
// and session-property absorption after update statements.
type Conn interface {
	StartQuery(ctx context.Context, query string, props SessionProperties) (ExecSession, error)

	// UpdateSession lets the connection absorb session changes (SET SESSION,
	// transaction state) reported by a finished update execution.
	UpdateSession(session ExecSession)

	Closed() bool
}
