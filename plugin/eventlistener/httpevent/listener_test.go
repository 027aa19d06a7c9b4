package httpevent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/heliosql/helio-go/plugin"
	"github.com/heliosql/helio-go/plugin/eventlistener"
)

type capture struct {
	mu      sync.Mutex
	batches [][]eventlistener.QueryCompletedEvent
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload struct {
		Events []eventlistener.QueryCompletedEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.batches = append(c.batches, payload.Events)
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *capture) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func event(id string) eventlistener.QueryCompletedEvent {
	return eventlistener.QueryCompletedEvent{QueryID: id, User: "alice", Query: "SELECT 1", State: "FINISHED"}
}

func TestBatchSizeTriggersPost(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	listener := NewListener(Config{IngestURI: srv.URL, BatchSize: 2, FlushInterval: time.Hour})
	defer listener.Close()

	listener.QueryCompleted(context.Background(), event("q_1"))
	listener.QueryCompleted(context.Background(), event("q_2"))

	waitFor(t, func() bool { return c.total() == 2 })

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) != 1 || c.batches[0][0].QueryID != "q_1" {
		t.Errorf("batches = %v, want one batch starting with q_1", c.batches)
	}
}

func TestFlushIntervalPostsPartialBatch(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	listener := NewListener(Config{IngestURI: srv.URL, BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	defer listener.Close()

	listener.QueryCompleted(context.Background(), event("q_1"))
	waitFor(t, func() bool { return c.total() == 1 })
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	listener := NewListener(Config{IngestURI: srv.URL, BatchSize: 100, FlushInterval: time.Hour})
	listener.QueryCompleted(context.Background(), event("q_1"))
	listener.QueryCompleted(context.Background(), event("q_2"))

	if err := listener.Close(); err != nil {
		t.Fatal(err)
	}
	if c.total() != 2 {
		t.Errorf("drained %d events on Close, want 2", c.total())
	}
	if err := listener.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestEndpointFailureNeverFailsQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	listener := NewListener(Config{IngestURI: srv.URL, BatchSize: 1, FlushInterval: time.Hour})
	defer listener.Close()

	if err := listener.QueryCompleted(context.Background(), event("q_1")); err != nil {
		t.Errorf("QueryCompleted = %v, failed posts must not surface", err)
	}
}

func TestFactoryConfig(t *testing.T) {
	_, err := Factory{}.Create(context.Background(), map[string]string{}, nil)
	var cfgErr *plugin.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != optIngestURI {
		t.Fatalf("err = %v, want ConfigError for %s", err, optIngestURI)
	}

	listener, err := Factory{}.Create(context.Background(), map[string]string{
		optIngestURI:     "http://collector.internal/events",
		optBatchSize:     "25",
		optFlushInterval: "2s",
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	listener.Close()
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	base := map[string]string{optIngestURI: "http://x/events"}

	bad := map[string]string{optBatchSize: "0", optFlushInterval: "-1s"}
	for opt, value := range bad {
		options := map[string]string{optIngestURI: base[optIngestURI], opt: value}
		if _, err := ParseConfig(options); err == nil {
			t.Errorf("%s=%s must be rejected", opt, value)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
