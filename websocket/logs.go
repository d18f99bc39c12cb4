package websocket

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs logs the connection lifecycle of a handler and, every
// summary interval, the number of messages it exchanged by type.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	h.originalRequest = conn.Request()

	logs.WithTag("remote_addr", h.originalRequest.RemoteAddr).
		WithTag("user_agent", h.originalRequest.UserAgent()).
		WithClientID(h.GetClientID()).
		Info("debug stream client connected")
}

func (h *handlerWithLogs) HandleSubscribe(ctx context.Context, respond ResponseSender, msg Msg) error {
	if err := h.Handler.HandleSubscribe(ctx, respond, msg); err != nil {
		return err
	}

	logs.WithTag("every", max(msg.Every, 1)).
		WithClientID(h.GetClientID()).
		Info("client subscribed to frame reports")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithTag("reason", err).WithClientID(h.GetClientID())
	if h.originalRequest != nil {
		entry = entry.WithTag("remote_addr", h.originalRequest.RemoteAddr)
	}
	entry.Info("debug stream client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !isClosed(err) {
			logs.WithTag("bytes", n).
				WithClientID(h.GetClientID()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag("msg_type", msg.TypeString()).
				WithClientID(h.GetClientID()).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !isClosed(err) {
			logs.WithTag("msg_type", msgType).
				WithClientID(h.GetClientID()).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil && msg.Type != MsgTypeFrame {
			logs.WithTag("msg_type", msgType).
				WithClientID(h.GetClientID()).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithTag("time_interval", h.summaryInterval).
		WithClientID(h.GetClientID())

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}

func isClosed(err error) bool {
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, net.ErrClosed)
}
