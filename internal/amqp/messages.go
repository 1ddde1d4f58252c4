package amqp

import (
	"encoding/json"
	"time"
)

// Mirror operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// MirrorMessage asks the mirror worker to reconcile one transaction in
// the per-owner namespace. It carries only the identifiers; the worker
// reads the canonical document itself, so stale messages converge to the
// current state.
type MirrorMessage struct {
	Op        string    `json:"op"`
	Owner     string    `json:"owner"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMirrorMessage creates a reconcile request for one document.
func NewMirrorMessage(op, owner, id string) *MirrorMessage {
	return &MirrorMessage{
		Op:        op,
		Owner:     owner,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MirrorMessageFromJSON creates a message from JSON bytes.
func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
