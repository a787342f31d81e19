package amqp

import (
	"encoding/json"
	"time"
)

// RecordEventMessage is the lightweight message published after a record
// mutation. It carries only identifiers; the worker fetches the full record
// from the database before exporting it.
type RecordEventMessage struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEventMessage(id, owner, action string) *RecordEventMessage {
	return &RecordEventMessage{
		ID:        id,
		Owner:     owner,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *RecordEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordEventMessageFromJSON(data []byte) (*RecordEventMessage, error) {
	var msg RecordEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
