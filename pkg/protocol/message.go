// Package protocol defines the WebSocket messages exchanged between the robot
// and operator consoles.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Robot → Console messages
	TypeStatus    MessageType = "status"    // Estimator and strategy state
	TypeVariables MessageType = "variables" // Debug variable snapshot
	TypeResult    MessageType = "result"    // Outcome of a call
	TypeLog       MessageType = "log"       // Log line

	// Console → Robot messages
	TypeCall MessageType = "call" // Invoke a debug function

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with a fresh ID and the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Robot → Console Message Types
// =============================================================================

// Position is a field position in centimeters.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
}

// StatusData is a snapshot of what the robot believes and is doing
type StatusData struct {
	Strategy   string   `json:"strategy"`
	Started    bool     `json:"started"`
	Goalie     bool     `json:"goalie"`
	Heading    float64  `json:"heading"`
	Coordinate Position `json:"coordinate"`
	Ball       Position `json:"ball"`
	Goal       Position `json:"goal"`
	Motors     [4]int16 `json:"motors"` // fl, fr, bl, br
}

// VariablesData is a debug variable snapshot
type VariablesData struct {
	Seq    uint64            `json:"seq"`
	Values map[string]string `json:"values"`
}

// ResultData reports the outcome of a call
type ResultData struct {
	CallID   string `json:"call_id"`
	Function string `json:"function"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// LogData is one log record
type LogData struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// =============================================================================
// Console → Robot Message Types
// =============================================================================

// CallData invokes a registered debug function
type CallData struct {
	Function string            `json:"function"`
	Args     map[string]string `json:"args,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
