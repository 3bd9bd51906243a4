package amqp

import (
	"encoding/json"
	"time"
)

// ImportEvent announces one committed import batch. Consumers fetch nothing
// extra; the event is the whole payload.
type ImportEvent struct {
	Kind      string    `json:"kind"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportEvent builds an event for a committed batch.
func NewImportEvent(kind string, rows int) *ImportEvent {
	return &ImportEvent{
		Kind:      kind,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *ImportEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ImportEventFromJSON parses an event from JSON bytes.
func ImportEventFromJSON(data []byte) (*ImportEvent, error) {
	var ev ImportEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
