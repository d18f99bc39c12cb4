package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/sim"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// NewTestingEnv starts a debug stream server serving the handlers returned by
// newHandler. It returns a function to connect clients and a function that
// stops the server.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (func() *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	ctx, cancel := context.WithCancel(context.Background())

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(ctx, conn, handler)
		},
	})

	var conns []*websocket.Conn

	dial := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set(HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		mutex.Lock()
		conns = append(conns, conn)
		mutex.Unlock()
		return conn
	}

	return dial, func() {
		mutex.Lock()
		logger = nil
		for _, c := range conns {
			c.Close()
		}
		mutex.Unlock()

		cancel()
		server.Close()
	}
}

// TestSource is a Source whose frames are published by hand.
type TestSource struct {
	mutex       sync.Mutex
	nextID      int
	subscribers map[int]func(sim.FrameReport)
}

func (s *TestSource) Subscribe(f func(sim.FrameReport)) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.subscribers == nil {
		s.subscribers = make(map[int]func(sim.FrameReport))
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = f

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		delete(s.subscribers, id)
	}
}

// Publish calls every subscriber with the given report.
func (s *TestSource) Publish(r sim.FrameReport) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, f := range s.subscribers {
		f(r)
	}
}

func (s *TestSource) SubscriberCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.subscribers)
}
