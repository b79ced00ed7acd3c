package relay

import (
	"encoding/json"
	"time"
)

// ChangeEvent announces a committed write to one collection. Consumers
// re-read the collection rather than trusting the event payload, so the
// message stays small.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeEvent(collection, op string) *ChangeEvent {
	return &ChangeEvent{
		Collection: collection,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
