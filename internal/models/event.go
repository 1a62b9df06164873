// -----------------------------------------------------------------------
// Progress Events - wire format streamed to job subscribers
// -----------------------------------------------------------------------

package models

import "time"

// EventType tags a progress event.
type EventType string

const (
	EventStatusUpdate     EventType = "status_update"
	EventQueryGenerating  EventType = "query_generating"
	EventQueryGenerated   EventType = "query_generated"
	EventQuerySearching   EventType = "query_searching"
	EventQuerySearched    EventType = "query_searched"
	EventDocumentKept     EventType = "document_kept"
	EventCategoryStart    EventType = "category_start"
	EventCategoryComplete EventType = "category_complete"
	EventBatchStart       EventType = "batch_start"
	EventExtracting       EventType = "extracting"
	EventExtracted        EventType = "extracted"
	EventReportChunk      EventType = "report_chunk"
	EventError            EventType = "error"
)

// Event is the wire envelope: { "type", "timestamp", "data" }.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates a timestamped event.
func NewEvent(t EventType, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

// NewStatusEvent builds a status_update event from a job snapshot.
func NewStatusEvent(job *Job) Event {
	data := map[string]interface{}{
		"status":   string(job.Status),
		"progress": job.Progress,
	}
	if job.Message != "" {
		data["message"] = job.Message
	}
	if job.Error != "" {
		data["error"] = job.Error
	}
	if job.Result != nil {
		data["result"] = job.Result
	}
	return NewEvent(EventStatusUpdate, data)
}

// NewErrorEvent builds an error event for a stage-level failure that does not
// terminate the pipeline.
func NewErrorEvent(stage string, err error) Event {
	return NewEvent(EventError, map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}
