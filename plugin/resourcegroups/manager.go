package resourcegroups

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heliosql/helio-go/internal/debug"
)

// Manager resolves a query to its resource group.
type Manager interface {
	// Match returns the group for the query, or false when no selector
	// accepts it.
	Match(criteria SelectionCriteria) (Group, bool)

	// Groups returns the current group definitions.
	Groups() []Group

	// Close stops background refreshing and releases resources. Close is
	// idempotent.
	Close() error
}

// DBManager serves matches from a database-backed rule set and refreshes it
// in the background.
type DBManager struct {
	dao        *DAO
	db         *sql.DB
	rules      atomic.Pointer[ruleSet]
	refresh    time.Duration
	exactMatch bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDBManager loads the initial rule set and starts the refresher. The
// database handle is owned by the manager from here on.
func NewDBManager(ctx context.Context, db *sql.DB, cfg Config) (*DBManager, error) {
	m := &DBManager{
		dao:        NewDAO(db),
		db:         db,
		refresh:    cfg.MaxRefreshInterval,
		exactMatch: cfg.ExactMatchEnabled,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if err := m.load(ctx); err != nil {
		m.dao.Close()
		return nil, err
	}
	go m.refreshLoop()
	return m, nil
}

func (m *DBManager) load(ctx context.Context) error {
	groups, err := m.dao.Groups(ctx)
	if err != nil {
		return err
	}
	specs, err := m.dao.Selectors(ctx)
	if err != nil {
		return err
	}
	var exact []ExactMatchSpec
	if m.exactMatch {
		if exact, err = m.dao.ExactMatches(ctx); err != nil {
			return err
		}
	}
	rs, err := compileRuleSet(groups, specs, exact)
	if err != nil {
		return fmt.Errorf("compiling resource group configuration: %w", err)
	}
	m.rules.Store(rs)
	return nil
}

func (m *DBManager) refreshLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.refresh)
			if err := m.load(ctx); err != nil {
				// A stale rule set keeps serving until the next cycle.
				debug.Warn("resource group refresh failed", "error", err)
			}
			cancel()
		}
	}
}

// Match implements Manager.
func (m *DBManager) Match(criteria SelectionCriteria) (Group, bool) {
	return m.rules.Load().match(criteria)
}

// Groups implements Manager.
func (m *DBManager) Groups() []Group {
	rs := m.rules.Load()
	groups := make([]Group, 0, len(rs.groups))
	for _, g := range rs.groups {
		groups = append(groups, g)
	}
	return groups
}

// Close implements Manager.
func (m *DBManager) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
		m.dao.Close()
		err = m.db.Close()
	})
	return err
}
