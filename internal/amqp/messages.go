package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Change operations carried by RecordChangeMessage.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// RecordChangeMessage announces a committed write to one collection. Created
// and updated changes carry the full record so consumers never read back
// from the primary store.
type RecordChangeMessage struct {
	ID        uuid.UUID       `json:"id"`
	Entity    string          `json:"entity"`
	Op        string          `json:"op"`
	RecordID  int64           `json:"recordId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewRecordChangeMessage builds a message for record; record may be nil for
// deletions.
func NewRecordChangeMessage(entity, op string, recordID int64, record any) (*RecordChangeMessage, error) {
	msg := &RecordChangeMessage{
		ID:        uuid.New(),
		Entity:    entity,
		Op:        op,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
	if record != nil && op != OpDeleted {
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", entity, err)
		}
		msg.Payload = payload
	}
	return msg, msg.Validate()
}

// Validate rejects messages a consumer could not apply.
func (m *RecordChangeMessage) Validate() error {
	if m.Entity == "" {
		return errors.New("missing entity")
	}
	if m.RecordID <= 0 {
		return fmt.Errorf("invalid record id %d", m.RecordID)
	}
	switch m.Op {
	case OpCreated, OpUpdated:
		if len(m.Payload) == 0 {
			return fmt.Errorf("%s change for %s/%d has no payload", m.Op, m.Entity, m.RecordID)
		}
	case OpDeleted:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	return nil
}

func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangeMessageFromJSON decodes and validates a message body.
func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
