package client

import (
	"context"
	"errors"
	"sync"
)

// fakeSession scripts one execution: an optional update classification, a
// queue of row batches, per-poll warning lists, and a terminal status.
type fakeSession struct {
	mu sync.Mutex

	id          string
	columns     []string
	updateType  string
	updateCount *int64

	batches [][][]any
	current [][]any
	polls   int

	pollWarnings  [][]Warning
	finalWarnings []Warning
	finalErr      *QueryError
	stats         QueryStats

	finishedAtStart bool
	finished        bool
	advanceErr      error

	// blockAdvance, when non-nil, makes Advance wait until the channel is
	// closed or the session is closed.
	blockAdvance chan struct{}
	closeCh      chan struct{}
	closeOnce    sync.Once

	closeCalls  int
	leafCancels int
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{
		id:      id,
		closeCh: make(chan struct{}),
	}
}

func (s *fakeSession) QueryID() string { return s.id }

func (s *fakeSession) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAtStart || s.finished
}

func (s *fakeSession) Columns() []string { return s.columns }

func (s *fakeSession) CurrentRows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *fakeSession) CurrentStatus() StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusInfo{
		QueryID:    s.id,
		State:      s.stateLocked(),
		UpdateType: s.updateType,
		Warnings:   s.currentWarningsLocked(),
		Stats:      s.stats,
	}
}

func (s *fakeSession) FinalStatus() StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := "FINISHED"
	if s.finalErr != nil {
		state = "FAILED"
	}
	return StatusInfo{
		QueryID:     s.id,
		State:       state,
		UpdateType:  s.updateType,
		UpdateCount: s.updateCount,
		Err:         s.finalErr,
		Warnings:    s.finalWarnings,
		Stats:       s.stats,
	}
}

func (s *fakeSession) Advance(ctx context.Context) (bool, error) {
	if s.blockAdvance != nil {
		select {
		case <-s.blockAdvance:
		case <-s.closeCh:
			return false, errors.New("session closed")
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closeCh:
		return false, errors.New("session closed")
	default:
	}
	if s.advanceErr != nil {
		return false, s.advanceErr
	}
	s.polls++
	if len(s.batches) == 0 {
		s.finished = true
		s.current = nil
		return false, nil
	}
	s.current = s.batches[0]
	s.batches = s.batches[1:]
	return true, nil
}

func (s *fakeSession) CancelLeafStage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leafCancels++
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closeCh) })
}

func (s *fakeSession) stateLocked() string {
	if s.finishedAtStart || s.finished {
		return "FINISHED"
	}
	return "RUNNING"
}

func (s *fakeSession) currentWarningsLocked() []Warning {
	if len(s.pollWarnings) == 0 {
		return nil
	}
	idx := s.polls
	if idx >= len(s.pollWarnings) {
		idx = len(s.pollWarnings) - 1
	}
	return s.pollWarnings[idx]
}

// fakeConn hands out scripted sessions and records StartQuery traffic.
type fakeConn struct {
	mu sync.Mutex

	closed     bool
	startErr   error
	sessions   []*fakeSession
	startCalls int
	lastSQL    string
	lastProps  SessionProperties
	updated    []ExecSession
}

func newFakeConn(sessions ...*fakeSession) *fakeConn {
	return &fakeConn{sessions: sessions}
}

func (c *fakeConn) StartQuery(ctx context.Context, query string, props SessionProperties) (ExecSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCalls++
	c.lastSQL = query
	c.lastProps = props
	if c.startErr != nil {
		return nil, c.startErr
	}
	if len(c.sessions) == 0 {
		return nil, errors.New("no scripted session")
	}
	s := c.sessions[0]
	c.sessions = c.sessions[1:]
	return s, nil
}

func (c *fakeConn) UpdateSession(session ExecSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = append(c.updated, session)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startCalls
}

func (c *fakeConn) updates() []ExecSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

func (s *fakeSession) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *fakeSession) leafCancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leafCancels
}

func int64ptr(v int64) *int64 { return &v }
