// Package syncchan carries timer messages between surface runtimes and the
// main view. Messages are broadcast to every subscriber; receivers filter by
// type. Delivery is at-most-once and unordered across publishers.
package syncchan

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	TypeTaskComplete     Type = "TASK_COMPLETE"
	TypeTimerStateChange Type = "TIMER_STATE_CHANGE"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
	ErrClosed         = errors.New("sync channel closed")
)

// Message is one sync message. SurfaceID names the surface session that sent
// it; it is empty for senders that predate sessions.
type Message struct {
	Type          Type
	TaskID        string
	SurfaceID     string
	RemainingTime int
	IsPaused      bool
	ActualTime    int
}

type stateChangeWire struct {
	Type          Type   `json:"type"`
	TaskID        string `json:"taskId"`
	SurfaceID     string `json:"surfaceId,omitempty"`
	RemainingTime int    `json:"remainingTime"`
	IsPaused      bool   `json:"isPaused"`
}

type completeWire struct {
	Type       Type   `json:"type"`
	TaskID     string `json:"taskId"`
	SurfaceID  string `json:"surfaceId,omitempty"`
	ActualTime int    `json:"actualTime"`
}

type anyWire struct {
	Type          Type   `json:"type"`
	TaskID        string `json:"taskId"`
	SurfaceID     string `json:"surfaceId"`
	RemainingTime int    `json:"remainingTime"`
	IsPaused      bool   `json:"isPaused"`
	ActualTime    int    `json:"actualTime"`
}

func StateChange(taskID string, remainingTime int, isPaused bool) Message {
	return Message{
		Type:          TypeTimerStateChange,
		TaskID:        taskID,
		RemainingTime: remainingTime,
		IsPaused:      isPaused,
	}
}

func Completion(taskID string, actualTime int) Message {
	return Message{
		Type:       TypeTaskComplete,
		TaskID:     taskID,
		ActualTime: actualTime,
	}
}

// From stamps the message with the surface session that sends it.
func (m Message) From(surfaceID string) Message {
	m.SurfaceID = surfaceID
	return m
}

// MarshalJSON writes only the fields that belong to the message type.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeTimerStateChange:
		return json.Marshal(stateChangeWire{
			Type:          m.Type,
			TaskID:        m.TaskID,
			SurfaceID:     m.SurfaceID,
			RemainingTime: m.RemainingTime,
			IsPaused:      m.IsPaused,
		})
	case TypeTaskComplete:
		return json.Marshal(completeWire{
			Type:       m.Type,
			TaskID:     m.TaskID,
			SurfaceID:  m.SurfaceID,
			ActualTime: m.ActualTime,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var wire anyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Message{
		Type:          wire.Type,
		TaskID:        wire.TaskID,
		SurfaceID:     wire.SurfaceID,
		RemainingTime: wire.RemainingTime,
		IsPaused:      wire.IsPaused,
		ActualTime:    wire.ActualTime,
	}
	return nil
}

func Encode(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode parses a wire payload. Unknown types yield ErrUnknownType so the
// receiver can drop them.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (m Message) Validate() error {
	if m.Type != TypeTaskComplete && m.Type != TypeTimerStateChange {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if m.TaskID == "" {
		return fmt.Errorf("%w: missing taskId", ErrInvalidMessage)
	}
	if m.RemainingTime < 0 || m.ActualTime < 0 {
		return fmt.Errorf("%w: negative time", ErrInvalidMessage)
	}
	return nil
}
