package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// AlertMessage is the wire form of an alert raised by the store.
type AlertMessage struct {
	ID        string         `json:"id"`
	Type      core.AlertType `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAlertMessage wraps a store alert for publishing.
func NewAlertMessage(a core.Alert) *AlertMessage {
	return &AlertMessage{
		ID:        a.ID,
		Type:      a.Type,
		Title:     a.Title,
		Message:   a.Message,
		Data:      a.Data,
		CreatedAt: a.CreatedAt,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
