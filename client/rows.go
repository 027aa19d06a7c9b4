package client

import (
	"context"
	"sync/atomic"
)

// Rows is a lazy, finite, non-restartable row sequence bound to one
// ExecSession. Rows are consumed by a single goroutine; Close and
// PartialCancel may be called concurrently from another.
type Rows struct {
	session  ExecSession
	maxRows  int64
	progress ProgressMonitor
	warnings *WarningCollector
	onClose  func()

	closed atomic.Bool

	batch [][]any
	pos   int
	row   []any
	count int64
	done  bool
	err   error
}

// NewRows builds a row sequence over a live session. maxRows of 0 means
// unbounded. progress and warnings may be nil; onClose runs once when the
// rows are explicitly closed.
func NewRows(session ExecSession, maxRows int64, progress ProgressMonitor, warnings *WarningCollector, onClose func()) *Rows {
	r := &Rows{
		session:  session,
		maxRows:  maxRows,
		progress: progress,
		warnings: warnings,
		onClose:  onClose,
		batch:    session.CurrentRows(),
	}
	r.observe(session.CurrentStatus())
	return r
}

// Next advances to the next row. It returns false once the sequence is
// exhausted, the row cap is reached, or an error occurs; consult Err to tell
// the cases apart.
func (r *Rows) Next(ctx context.Context) bool {
	if r.done || r.err != nil || r.closed.Load() {
		return false
	}
	for {
		if r.pos < len(r.batch) {
			if r.maxRows > 0 && r.count >= r.maxRows {
				r.finish()
				return false
			}
			r.row = r.batch[r.pos]
			r.pos++
			r.count++
			return true
		}

		more, err := r.session.Advance(ctx)
		if err != nil {
			r.err = err
			r.finish()
			return false
		}
		r.observe(r.session.CurrentStatus())
		if !more {
			final := r.session.FinalStatus()
			r.observe(final)
			if final.Err != nil {
				r.err = &RemoteExecutionError{QueryID: final.QueryID, Detail: final.Err}
			}
			r.finish()
			return false
		}
		r.batch = r.session.CurrentRows()
		r.pos = 0
	}
}

// Row returns the current row. Valid only after a true Next.
func (r *Rows) Row() []any { return r.row }

// Err returns the error that terminated iteration, if any.
func (r *Rows) Err() error { return r.err }

// Columns returns the result column names.
func (r *Rows) Columns() []string { return r.session.Columns() }

// QueryID returns the engine query id backing this sequence.
func (r *Rows) QueryID() string { return r.session.QueryID() }

// Close releases the underlying session. It is idempotent and safe to call
// concurrently with Next.
func (r *Rows) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.session.Close()
	if r.onClose != nil {
		r.onClose()
	}
	return nil
}

// PartialCancel cancels the leaf stage of the query plan while leaving
// already-produced rows consumable.
func (r *Rows) PartialCancel() {
	r.session.CancelLeafStage()
}

func (r *Rows) observe(si StatusInfo) {
	if r.warnings != nil {
		r.warnings.Add(si.Warnings)
	}
	if r.progress != nil {
		r.progress(si.Stats)
	}
}

// finish marks the sequence exhausted and releases the session without
// running the onClose hook; the hook is reserved for explicit Close.
func (r *Rows) finish() {
	r.done = true
	r.session.Close()
}
