package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/heliosql/helio-go/internal/debug"
)

// ResultMode selects MoreResults behavior.
type ResultMode int

const (
	// CloseCurrentResult closes the current result set before advancing.
	CloseCurrentResult ResultMode = iota
	// KeepCurrentResult would keep the current result set open. Unsupported.
	KeepCurrentResult
	// CloseAllResults would close every open result set. Unsupported.
	CloseAllResults
)

const noUpdateCount = int64(-1)

type connBox struct{ conn Conn }

type sessionBox struct{ session ExecSession }

// Statement is the lifecycle controller for a single SQL statement submitted
// to the engine. One goroutine executes at a time; Cancel and Close may be
// called concurrently from others. Every cross-cutting field is an atomic
// cell so teardown happens exactly once and no exit path leaks a session.
type Statement struct {
	conn    atomic.Pointer[connBox]
	onClose func(*Statement)

	maxRows           atomic.Int64
	queryTimeoutSecs  atomic.Int32
	fetchSize         atomic.Int32
	closeOnCompletion atomic.Bool

	execSession atomic.Pointer[sessionBox]
	currentRows atomic.Pointer[Rows]
	warnings    atomic.Pointer[WarningCollector]
	updateCount atomic.Int64
	updateType  atomic.Pointer[string]
	progress    atomic.Pointer[ProgressMonitor]
}

// NewStatement binds a statement to its owning connection. onClose runs once
// on the first successful Close and may be nil.
func NewStatement(conn Conn, onClose func(*Statement)) *Statement {
	s := &Statement{onClose: onClose}
	s.conn.Store(&connBox{conn: conn})
	s.updateCount.Store(noUpdateCount)
	return s
}

// SetProgressMonitor registers a sink for periodic query progress snapshots.
// The monitor outlives Execute and Close; it is replaced only by another
// SetProgressMonitor or ClearProgressMonitor call.
func (s *Statement) SetProgressMonitor(monitor ProgressMonitor) {
	s.progress.Store(&monitor)
}

// ClearProgressMonitor removes the registered progress monitor.
func (s *Statement) ClearProgressMonitor() {
	s.progress.Store(nil)
}

func (s *Statement) notifyProgress(stats QueryStats) {
	if pm := s.progress.Load(); pm != nil && *pm != nil {
		(*pm)(stats)
	}
}

// Execute submits sql to the engine and reports whether it produced a query
// result. true means rows are available through ResultSet; false means the
// statement was an update and UpdateCount holds its row count.
func (s *Statement) Execute(ctx context.Context, query string) (bool, error) {
	s.clearResults()
	conn, err := s.connection()
	if err != nil {
		return false, err
	}

	var (
		session ExecSession
		rows    *Rows
		isQuery bool
	)
	defer func() {
		s.execSession.Store(nil)
		// Whenever no query result is handed back, the session and any rows
		// built over it are released before returning.
		if !isQuery {
			if rows != nil {
				rows.Close()
			}
			if session != nil {
				session.Close()
			}
		}
	}()

	session, err = conn.StartQuery(ctx, query, s.sessionProperties())
	if err != nil {
		return false, wrapExecError(query, err)
	}
	debug.Debug("query submitted", "queryID", session.QueryID())

	if session.IsFinished() {
		if detail := session.FinalStatus().Err; detail != nil {
			return false, &RemoteExecutionError{QueryID: session.QueryID(), SQL: query, Detail: detail}
		}
	}

	s.execSession.Store(&sessionBox{session: session})
	collector := NewWarningCollector()
	s.warnings.Store(collector)
	rows = NewRows(session, s.maxRows.Load(), s.notifyProgress, collector, nil)

	if session.CurrentStatus().UpdateType == "" {
		// Close-on-completion tracks only the result handed to the caller.
		rows.onClose = s.resultClosed
		s.currentRows.Store(rows)
		isQuery = true
		return true, nil
	}

	// Update statement: the engine finalizes counts and warnings only after
	// the row stream is fully drained.
	for rows.Next(ctx) {
	}
	if err := rows.Err(); err != nil {
		return false, wrapExecError(query, err)
	}

	conn.UpdateSession(session)

	final := session.FinalStatus()
	count := int64(0)
	if final.UpdateCount != nil {
		count = *final.UpdateCount
	}
	s.updateCount.Store(count)
	updateType := final.UpdateType
	s.updateType.Store(&updateType)
	collector.Add(final.Warnings)
	debug.Debug("update finished", "queryID", session.QueryID(), "updateType", updateType, "rows", count)
	return false, nil
}

// ExecuteQuery runs a statement that must produce rows.
func (s *Statement) ExecuteQuery(ctx context.Context, query string) (*Rows, error) {
	isQuery, err := s.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	if !isQuery {
		return nil, &WrongStatementKindError{SQL: query, IsQuery: false}
	}
	return s.currentRows.Load(), nil
}

// ExecuteUpdate runs a statement that must be an update and returns its row
// count, saturated to 32 bits.
func (s *Statement) ExecuteUpdate(ctx context.Context, query string) (int, error) {
	count, err := s.ExecuteLargeUpdate(ctx, query)
	return saturatedInt(count), err
}

// ExecuteLargeUpdate runs a statement that must be an update and returns its
// full 64-bit row count.
func (s *Statement) ExecuteLargeUpdate(ctx context.Context, query string) (int64, error) {
	isQuery, err := s.Execute(ctx, query)
	if err != nil {
		return 0, err
	}
	if isQuery {
		return 0, &WrongStatementKindError{SQL: query, IsQuery: true}
	}
	return s.updateCount.Load(), nil
}

// Cancel aborts the in-flight execution, best effort. With a live session it
// requests engine-side cancellation and releases local resources; with only
// a retained result it forwards a partial cancel. It never fails and is a
// no-op on an idle or closed statement.
func (s *Statement) Cancel() {
	if box := s.execSession.Load(); box != nil {
		box.session.Close()
		s.closeRows()
		return
	}
	if rows := s.currentRows.Load(); rows != nil {
		rows.PartialCancel()
	}
}

// PartialCancel cancels only the leaf stage of the running query, stopping
// speculative work while preserving already-produced output. Never fails.
func (s *Statement) PartialCancel() {
	if box := s.execSession.Load(); box != nil {
		box.session.CancelLeafStage()
		return
	}
	if rows := s.currentRows.Load(); rows != nil {
		rows.PartialCancel()
	}
}

// Close releases the statement. The first call performs teardown; later
// calls, including concurrent ones, are no-ops. Close never fails.
func (s *Statement) Close() error {
	box := s.conn.Swap(nil)
	if box == nil {
		return nil
	}
	debug.Debug("statement closed")
	if s.onClose != nil {
		s.onClose(s)
	}
	if sb := s.execSession.Load(); sb != nil {
		sb.session.Close()
	}
	s.closeRows()
	return nil
}

// Closed reports whether the statement has been closed.
func (s *Statement) Closed() bool {
	return s.conn.Load() == nil
}

// ResultSet returns the current query result, or nil when the last execution
// was an update or nothing has been executed.
func (s *Statement) ResultSet() (*Rows, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.currentRows.Load(), nil
}

// UpdateCount returns the last update row count saturated to 32 bits, or -1
// when the last execution produced a query result.
func (s *Statement) UpdateCount() (int, error) {
	count, err := s.LargeUpdateCount()
	return saturatedInt(count), err
}

// LargeUpdateCount returns the last update row count, or -1 when the last
// execution produced a query result.
func (s *Statement) LargeUpdateCount() (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.updateCount.Load(), nil
}

// UpdateType returns the engine's label for the last update statement
// (INSERT, CREATE TABLE, ...), or empty for a query.
func (s *Statement) UpdateType() (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if ut := s.updateType.Load(); ut != nil {
		return *ut, nil
	}
	return "", nil
}

// MoreResults closes the current result and resets the update state. The
// statement never has a second result, so it always reports false.
func (s *Statement) MoreResults(mode ResultMode) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	s.updateCount.Store(noUpdateCount)
	s.updateType.Store(nil)
	switch mode {
	case CloseCurrentResult:
		s.closeRows()
		return false, nil
	case KeepCurrentResult, CloseAllResults:
		return false, &UnsupportedOperationError{Op: "multiple open results"}
	default:
		return false, &InvalidArgumentError{Param: "result mode", Value: int64(mode), Detail: "is not a known mode"}
	}
}

// MaxRows returns the row cap saturated to 32 bits.
func (s *Statement) MaxRows() (int, error) {
	v, err := s.LargeMaxRows()
	return saturatedInt(v), err
}

// LargeMaxRows returns the row cap; 0 means unbounded.
func (s *Statement) LargeMaxRows() (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.maxRows.Load(), nil
}

// SetMaxRows caps the number of rows a query result produces.
func (s *Statement) SetMaxRows(max int) error {
	return s.SetLargeMaxRows(int64(max))
}

// SetLargeMaxRows caps the number of rows a query result produces.
func (s *Statement) SetLargeMaxRows(max int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if max < 0 {
		return &InvalidArgumentError{Param: "max rows", Value: max}
	}
	s.maxRows.Store(max)
	return nil
}

// FetchSize returns the per-poll row count hint.
func (s *Statement) FetchSize() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return int(s.fetchSize.Load()), nil
}

// SetFetchSize records a per-poll row count hint for the engine.
func (s *Statement) SetFetchSize(rows int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if rows < 0 {
		return &InvalidArgumentError{Param: "fetch size", Value: int64(rows)}
	}
	s.fetchSize.Store(int32(rows))
	return nil
}

// QueryTimeout returns the per-query timeout in seconds; 0 means none.
func (s *Statement) QueryTimeout() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return int(s.queryTimeoutSecs.Load()), nil
}

// SetQueryTimeout bounds query run time via the engine's max-run-time
// session property.
func (s *Statement) SetQueryTimeout(seconds int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if seconds < 0 {
		return &InvalidArgumentError{Param: "query timeout seconds", Value: int64(seconds)}
	}
	s.queryTimeoutSecs.Store(int32(seconds))
	return nil
}

// Warnings returns the warning chain accumulated by the current execution.
func (s *Statement) Warnings() ([]Warning, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if c := s.warnings.Load(); c != nil {
		return c.Warnings(), nil
	}
	return nil, nil
}

// ClearWarnings empties the current warning chain without blocking further
// accumulation.
func (s *Statement) ClearWarnings() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if c := s.warnings.Load(); c != nil {
		c.Clear()
	}
	return nil
}

// CloseOnCompletion arranges for the statement to close once its result set
// is closed.
func (s *Statement) CloseOnCompletion() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.closeOnCompletion.Store(true)
	return nil
}

// IsCloseOnCompletion reports whether close-on-completion was requested.
func (s *Statement) IsCloseOnCompletion() (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	return s.closeOnCompletion.Load(), nil
}

// AddBatch is deliberately unsupported.
func (s *Statement) AddBatch(query string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return &UnsupportedOperationError{Op: "batches"}
}

// ClearBatch is deliberately unsupported.
func (s *Statement) ClearBatch() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return &UnsupportedOperationError{Op: "batches"}
}

// ExecuteBatch is deliberately unsupported.
func (s *Statement) ExecuteBatch(ctx context.Context) ([]int64, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return nil, &UnsupportedOperationError{Op: "batches"}
}

// GeneratedKeys is deliberately unsupported.
func (s *Statement) GeneratedKeys() (*Rows, error) {
	return nil, &UnsupportedOperationError{Op: "generated keys"}
}

// Conn returns the owning connection.
func (s *Statement) Conn() (Conn, error) {
	return s.connection()
}

func (s *Statement) sessionProperties() SessionProperties {
	props := SessionProperties{}
	if timeout := s.queryTimeoutSecs.Load(); timeout > 0 {
		props["query_max_run_time"] = fmt.Sprintf("%ds", timeout)
	}
	return props
}

func (s *Statement) clearResults() {
	s.currentRows.Store(nil)
	s.updateCount.Store(noUpdateCount)
	s.updateType.Store(nil)
	s.warnings.Store(nil)
}

// resultClosed runs when the current result set is explicitly closed.
func (s *Statement) resultClosed() {
	if s.closeOnCompletion.Load() {
		s.Close()
	}
}

func (s *Statement) closeRows() {
	if rows := s.currentRows.Swap(nil); rows != nil {
		rows.Close()
	}
}

func (s *Statement) checkOpen() error {
	_, err := s.connection()
	return err
}

func (s *Statement) connection() (Conn, error) {
	box := s.conn.Load()
	if box == nil {
		return nil, &NotOpenError{What: "statement"}
	}
	if box.conn.Closed() {
		return nil, &NotOpenError{What: "connection"}
	}
	return box.conn, nil
}

// wrapExecError attaches the failing SQL text to errors surfaced by Execute.
func wrapExecError(query string, err error) error {
	var remote *RemoteExecutionError
	if errors.As(err, &remote) {
		return &RemoteExecutionError{QueryID: remote.QueryID, SQL: query, Detail: remote.Detail}
	}
	return &TransportError{SQL: query, Err: err}
}

func saturatedInt(v int64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}
