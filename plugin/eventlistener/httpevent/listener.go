// Package httpevent posts query completion events to an HTTP endpoint in
// JSON batches.
package httpevent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/heliosql/helio-go/internal/debug"
	"github.com/heliosql/helio-go/plugin"
	"github.com/heliosql/helio-go/plugin/eventlistener"
)

// Option names accepted by the factory.
const (
	optIngestURI     = "http-event-listener.connect-ingest-uri"
	optBatchSize     = "http-event-listener.batch-size"
	optFlushInterval = "http-event-listener.flush-interval"
)

const (
	defaultBatchSize     = 10
	defaultFlushInterval = 30 * time.Second
	requestTimeout       = 5 * time.Second
)

// Config is the listener configuration, decoded from the factory option map.
type Config struct {
	IngestURI     string
	BatchSize     int
	FlushInterval time.Duration
}

// ParseConfig decodes the option map. Option keys contain dots, so the viper
// instance uses a delimiter that cannot appear in them.
func ParseConfig(options map[string]string) (Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetDefault(optBatchSize, defaultBatchSize)
	v.SetDefault(optFlushInterval, defaultFlushInterval.String())
	for key, value := range options {
		v.Set(key, value)
	}
	cfg := Config{
		IngestURI:     v.GetString(optIngestURI),
		BatchSize:     v.GetInt(optBatchSize),
		FlushInterval: v.GetDuration(optFlushInterval),
	}
	if cfg.IngestURI == "" {
		return Config{}, &plugin.ConfigError{Option: optIngestURI, Detail: "is required"}
	}
	if cfg.BatchSize <= 0 {
		return Config{}, &plugin.ConfigError{Option: optBatchSize, Detail: "must be positive"}
	}
	if cfg.FlushInterval <= 0 {
		return Config{}, &plugin.ConfigError{Option: optFlushInterval, Detail: "must be positive"}
	}
	return cfg, nil
}

// Listener buffers events and posts them in batches, either when the batch
// fills or on the flush interval, whichever comes first.
type Listener struct {
	endpoint      string
	batchSize     int
	flushInterval time.Duration
	httpClient    *http.Client

	mu     sync.Mutex
	events []eventlistener.QueryCompletedEvent

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewListener starts the background flusher.
func NewListener(cfg Config) *Listener {
	l := &Listener{
		endpoint:      cfg.IngestURI,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		httpClient:    &http.Client{Timeout: requestTimeout},
		events:        make([]eventlistener.QueryCompletedEvent, 0, cfg.BatchSize),
		stopChan:      make(chan struct{}),
	}
	l.wg.Add(1)
	go l.backgroundFlush()
	return l
}

// QueryCompleted implements eventlistener.Listener. Events are buffered, so
// this never blocks on the network.
func (l *Listener) QueryCompleted(_ context.Context, event eventlistener.QueryCompletedEvent) error {
	l.mu.Lock()
	l.events = append(l.events, event)
	full := len(l.events) >= l.batchSize
	l.mu.Unlock()

	if full {
		l.flush()
	}
	return nil
}

// flush takes the buffered events and posts them. A failed post is dropped
// after logging; the listener never fails the query that produced the event.
func (l *Listener) flush() {
	l.mu.Lock()
	if len(l.events) == 0 {
		l.mu.Unlock()
		return
	}
	events := l.events
	l.events = make([]eventlistener.QueryCompletedEvent, 0, l.batchSize)
	l.mu.Unlock()

	if err := l.sendEvents(events); err != nil {
		debug.Warn("event batch post failed", "endpoint", l.endpoint, "events", len(events), "error", err)
	}
}

func (l *Listener) sendEvents(events []eventlistener.QueryCompletedEvent) error {
	payload := map[string]any{"events": events}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}

func (l *Listener) backgroundFlush() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.flush()
		case <-l.stopChan:
			return
		}
	}
}

// Close implements eventlistener.Listener. It stops the background flusher
// and drains the remaining buffered events.
func (l *Listener) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
		l.flush()
	})
	return nil
}

// Factory builds HTTP-batching listeners from a raw option map.
type Factory struct{}

// Name returns the factory registration name.
func (Factory) Name() string { return "http" }

// Create resolves environment references and starts a ready listener.
func (Factory) Create(_ context.Context, options map[string]string, env plugin.EnvFunc) (eventlistener.Listener, error) {
	resolved, err := plugin.SubstituteEnv(options, env)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(resolved)
	if err != nil {
		return nil, err
	}
	return NewListener(cfg), nil
}
