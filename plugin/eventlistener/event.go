// Package eventlistener defines the query completion event record and the
// listener contract its sinks implement.
package eventlistener

import (
	"context"
	"time"

	"github.com/heliosql/helio-go/client"
)

// QueryCompletedEvent is the flattened record a listener receives once per
// finished query.
type QueryCompletedEvent struct {
	QueryID          string    `json:"queryId"`
	User             string    `json:"user"`
	Source           string    `json:"source,omitempty"`
	Query            string    `json:"query"`
	State            string    `json:"state"`
	ErrorCode        int       `json:"errorCode,omitempty"`
	ErrorName        string    `json:"errorName,omitempty"`
	CPUTimeMillis    int64     `json:"cpuTimeMillis"`
	WallTimeMillis   int64     `json:"wallTimeMillis"`
	QueuedTimeMillis int64     `json:"queuedTimeMillis"`
	ProcessedRows    int64     `json:"processedRows"`
	ProcessedBytes   int64     `json:"processedBytes"`
	PeakMemoryBytes  int64     `json:"peakMemoryBytes"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Listener receives completion events. Implementations must tolerate
// concurrent calls.
type Listener interface {
	QueryCompleted(ctx context.Context, event QueryCompletedEvent) error
	Close() error
}

// FromStatus flattens a final status report into an event record.
func FromStatus(query, user, source string, status client.StatusInfo) QueryCompletedEvent {
	event := QueryCompletedEvent{
		QueryID:          status.QueryID,
		User:             user,
		Source:           source,
		Query:            query,
		State:            status.State,
		CPUTimeMillis:    status.Stats.CPUTimeMillis,
		WallTimeMillis:   status.Stats.WallTimeMillis,
		QueuedTimeMillis: status.Stats.QueuedTimeMillis,
		ProcessedRows:    status.Stats.ProcessedRows,
		ProcessedBytes:   status.Stats.ProcessedBytes,
		PeakMemoryBytes:  status.Stats.PeakMemoryBytes,
		CreatedAt:        time.Now().UTC(),
	}
	if status.Err != nil {
		event.ErrorCode = status.Err.Code
		event.ErrorName = status.Err.Name
	}
	return event
}
