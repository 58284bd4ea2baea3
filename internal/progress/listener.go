// Package progress streams live run progress from the websocket endpoint
// returned by client.GetWebsocketURL.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Backland-Labs/runclient/internal/logger"
)

const (
	// DefaultHandshakeTimeout bounds the websocket upgrade
	DefaultHandshakeTimeout = 10 * time.Second

	// eventBufferSize is the capacity of the Events channel
	eventBufferSize = 64

	closeGracePeriod = time.Second
)

// Event is one message published on the progress socket
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event data into v
func (e Event) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %q has no data", e.Type)
	}
	return json.Unmarshal(e.Data, v)
}

// Listener reads events from one websocket connection
type Listener struct {
	conn   *websocket.Conn
	events chan Event
	log    *logger.Logger

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	quit      chan struct{} // closed by Close
	done      chan struct{} // closed when readLoop exits
}

// Dial connects to url and starts reading events.
// The connection is closed when ctx is done or Close is called.
func Dial(ctx context.Context, url string, header http.Header) (*Listener, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	l := &Listener{
		conn:   conn,
		events: make(chan Event, eventBufferSize),
		log:    logger.WithField("ws_url", url),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go l.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-l.done:
		}
	}()

	l.log.Debug("Progress socket connected")
	return l, nil
}

// Events returns the channel of received events. It is closed when the connection ends.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Err returns why the connection ended, or nil for a normal close
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close sends a normal close frame and tears the connection down
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.quit)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = l.conn.Close()
	})
	return err
}

func (l *Listener) readLoop() {
	defer close(l.done)
	defer close(l.events)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if !isNormalClose(err) {
				l.setErr(err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.log.WithError(err).Warn("Skipping malformed progress message")
			continue
		}
		select {
		case l.events <- ev:
		case <-l.quit:
			return
		}
	}
}

func (l *Listener) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

// Listen dials url and calls fn for every event until ctx is done, the server
// closes the socket, or fn returns an error.
func Listen(ctx context.Context, url string, fn func(Event) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l, err := Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer l.Close()

	for ev := range l.Events() {
		if err := fn(ev); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return l.Err()
}
