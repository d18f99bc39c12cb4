package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/sim"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// HeaderClientID is the request header a client can use to name itself.
const HeaderClientID = "X-Sowilo-Client-Id"

// Source publishes frame reports.
type Source interface {
	Subscribe(func(sim.FrameReport)) (cancel func())
}

// StreamHandler streams the frame reports of a simulation to a connected
// client.
type StreamHandler struct {
	// The simulation frames are read from.
	Source Source

	// The identifier of the simulation run, sent back on subscription.
	RunID string

	// The interval between each heartbeat sent to the connected client.
	ClientHeartbeatInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	conn     *websocket.Conn
	clientID string

	mutex       sync.Mutex
	unsubscribe func()
}

func (h *StreamHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	h.clientID = conn.Request().Header.Get(HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
}

func (h *StreamHandler) HandleDisconnect(err error) {
	h.stopStreaming()
}

func (h *StreamHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	respond.Send(Msg{
		Type:      MsgTypePong,
		RequestID: msg.RequestID,
		Timestamp: time.Now().UnixNano(),
	})
	return nil
}

// HandleSubscribe starts forwarding frame reports to the client. Subscribing
// again replaces the previous subscription.
func (h *StreamHandler) HandleSubscribe(ctx context.Context, respond ResponseSender, msg Msg) error {
	if msg.Every < 0 {
		respond.Send(Msg{
			Type:      MsgTypeError,
			RequestID: msg.RequestID,
			Error:     ErrTypeInvalidMsg,
		})
		return nil
	}

	every := max(msg.Every, 1)

	h.stopStreaming()

	respond.Send(Msg{
		Type:      MsgTypeSubscribed,
		RequestID: msg.RequestID,
		Timestamp: time.Now().UnixNano(),
		ClientID:  h.clientID,
		RunID:     h.RunID,
		Every:     every,
	})

	// Reports are published from a single goroutine.
	n := 0
	cancel := h.Source.Subscribe(func(report sim.FrameReport) {
		n++
		if n%every != 0 {
			return
		}

		respond.Send(Msg{
			Type:      MsgTypeFrame,
			Timestamp: time.Now().UnixNano(),
			Frame:     &report,
		})
	})

	h.mutex.Lock()
	h.unsubscribe = cancel
	h.mutex.Unlock()
	return nil
}

func (h *StreamHandler) HandleUnsubscribe(ctx context.Context, respond ResponseSender, msg Msg) error {
	h.stopStreaming()

	respond.Send(Msg{
		Type:      MsgTypeUnsubscribed,
		RequestID: msg.RequestID,
		Timestamp: time.Now().UnixNano(),
	})
	return nil
}

func (h *StreamHandler) SendHeartbeat(ctx context.Context, respond ResponseSender) error {
	respond.Send(Msg{
		Type:      MsgTypeHeartbeat,
		Timestamp: time.Now().UnixNano(),
	})
	return nil
}

func (h *StreamHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		var b []byte
		if err := websocket.Message.Receive(h.conn, &b); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(b, &msg); err != nil {
			return Msg{}, len(b), errors.New("decoding message failed").
				WithType(ErrTypeInvalidMsg).
				Wrap(err)
		}
		return msg, len(b), nil
	}
}

func (h *StreamHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		b, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithType(ErrTypeInvalidMsg).
				WithTag("msg_type", msg.TypeString()).
				Wrap(err)
		}

		if err := websocket.Message.Send(h.conn, string(b)); err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func (h *StreamHandler) Close() {
	h.stopStreaming()
}

func (h *StreamHandler) HeartbeatInterval() time.Duration {
	return h.ClientHeartbeatInterval
}

func (h *StreamHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *StreamHandler) GetClientID() string {
	return h.clientID
}

// Subscribed reports whether frame reports are being forwarded.
func (h *StreamHandler) Subscribed() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.unsubscribe != nil
}

func (h *StreamHandler) stopStreaming() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}
