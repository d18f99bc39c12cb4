package websocket

import (
	"github.com/aukilabs/sowilo/sim"
)

const (
	ErrTypeInvalidMsg = "stream-invalid-msg"
	ErrTypeUnknownMsg = "stream-unknown-msg"
)

// Message types.
const (
	MsgTypePing         = "ping"
	MsgTypePong         = "pong"
	MsgTypeSubscribe    = "subscribe"
	MsgTypeSubscribed   = "subscribed"
	MsgTypeUnsubscribe  = "unsubscribe"
	MsgTypeUnsubscribed = "unsubscribed"
	MsgTypeFrame        = "frame"
	MsgTypeHeartbeat    = "heartbeat"
	MsgTypeError        = "error"
)

// Msg is a message exchanged with a debug stream client. Messages are sent
// as JSON text frames.
type Msg struct {
	Type      string `json:"type"`
	RequestID uint32 `json:"request_id,omitempty"`

	// Unix time in nanoseconds.
	Timestamp int64 `json:"timestamp,omitempty"`

	ClientID string `json:"client_id,omitempty"`
	RunID    string `json:"run_id,omitempty"`

	// Forward one frame out of Every. Zero means every frame.
	Every int `json:"every,omitempty"`

	Frame *sim.FrameReport `json:"frame,omitempty"`
	Error string           `json:"error,omitempty"`
}

// TypeString returns the message type, or "unknown" when it is empty.
func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return m.Type
}

// Receiver reads the next message of a connection and reports the number of
// bytes read.
type Receiver func() (Msg, int, error)

// Sender writes a message to a connection and reports the number of bytes
// written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to a connected client. It never blocks.
type ResponseSender interface {
	Send(Msg)
}
