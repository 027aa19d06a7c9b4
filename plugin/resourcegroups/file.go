package resourcegroups

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heliosql/helio-go/internal/debug"
)

// fileConfig is the JSON document the file-backed manager reads.
type fileConfig struct {
	Groups       []Group          `json:"rootGroups"`
	Selectors    []SelectorSpec   `json:"selectors"`
	ExactMatches []ExactMatchSpec `json:"exactMatchSelectors,omitempty"`
}

// FileManager serves matches from a JSON config file and reloads it when the
// file changes on disk.
type FileManager struct {
	path    string
	rules   atomic.Pointer[ruleSet]
	watcher *fsnotify.Watcher

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewFileManager loads the config file and starts watching it.
func NewFileManager(path string) (*FileManager, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	m := &FileManager{
		path: absPath,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if err := m.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}
	m.watcher = watcher
	go m.watchLoop()
	return m, nil
}

func parseFile(path string) (*ruleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resource group config file: %w", err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing resource group config file: %w", err)
	}
	rs, err := compileRuleSet(cfg.Groups, cfg.Selectors, cfg.ExactMatches)
	if err != nil {
		return nil, fmt.Errorf("compiling resource group configuration: %w", err)
	}
	return rs, nil
}

// ValidateFile checks a config file without starting a manager.
func ValidateFile(path string) error {
	_, err := parseFile(path)
	return err
}

func (m *FileManager) load() error {
	rs, err := parseFile(m.path)
	if err != nil {
		return err
	}
	m.rules.Store(rs)
	return nil
}

func (m *FileManager) watchLoop() {
	defer close(m.done)

	debounceTimer := time.NewTimer(500 * time.Millisecond)
	debounceTimer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			eventPath, err := filepath.Abs(event.Name)
			if err == nil && eventPath == m.path {
				debounceTimer.Reset(500 * time.Millisecond)
				debounceCh = debounceTimer.C
			}

		case <-debounceCh:
			if err := m.load(); err != nil {
				// A broken edit keeps the previous rule set serving.
				debug.Warn("resource group config reload failed", "error", err)
			}
			debounceCh = nil

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			debug.Warn("resource group config watch error", "error", err)

		case <-m.stop:
			return
		}
	}
}

// Match implements Manager.
func (m *FileManager) Match(criteria SelectionCriteria) (Group, bool) {
	return m.rules.Load().match(criteria)
}

// Groups implements Manager.
func (m *FileManager) Groups() []Group {
	rs := m.rules.Load()
	groups := make([]Group, 0, len(rs.groups))
	for _, g := range rs.groups {
		groups = append(groups, g)
	}
	return groups
}

// Close implements Manager.
func (m *FileManager) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stop)
		err = m.watcher.Close()
		<-m.done
	})
	return err
}
