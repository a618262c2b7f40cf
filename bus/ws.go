// ABOUTME: Websocket transport carrying the bus between separate processes
// ABOUTME: Request/response demux by id plus forwarded progress broadcasts
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// envelope is the single wire frame type; Kind discriminates.
type envelope struct {
	Kind    string          `json:"kind"` // "request" | "response" | "progress"
	ID      int64           `json:"id,omitempty"`
	Action  Action          `json:"action,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Event   *ProgressEvent  `json:"event,omitempty"`
}

// ServeWS exposes the dispatcher over a websocket endpoint. Each connection
// gets its own progress subscription; a departing connection only cancels
// its subscription, never the background work.
func (d *Dispatcher) ServeWS() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "connection torn down")

		ctx := r.Context()
		var writeMu sync.Mutex
		write := func(env envelope) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return wsjson.Write(ctx, conn, env)
		}

		events, cancel := d.Subscribe()
		defer cancel()

		go func() {
			for event := range events {
				ev := event
				if err := write(envelope{Kind: "progress", Event: &ev}); err != nil {
					return
				}
			}
		}()

		for {
			var env envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				return
			}
			if env.Kind != "request" {
				continue
			}

			go func(env envelope) {
				response := envelope{Kind: "response", ID: env.ID}

				d.mu.RLock()
				handler, ok := d.handlers[env.Action]
				d.mu.RUnlock()

				if !ok {
					response.Error = fmt.Sprintf("no handler registered for action %q", env.Action)
				} else if result, err := handler(ctx, env.Payload); err != nil {
					response.Error = err.Error()
				} else {
					response.OK = true
					if result != nil {
						if data, err := json.Marshal(result); err == nil {
							response.Payload = data
						} else {
							response.OK = false
							response.Error = fmt.Sprintf("failed to encode result: %v", err)
						}
					}
				}

				_ = write(response)
			}(env)
		}
	})
}

// Conn is the foreground-context side of a websocket bus connection.
type Conn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan envelope
	events  chan ProgressEvent
	closed  bool
}

// Dial connects to a bus endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bus: %w", err)
	}

	c := &Conn{
		conn:    ws,
		pending: make(map[int64]chan envelope),
		events:  make(chan ProgressEvent, 64),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	ctx := context.Background()
	for {
		var env envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			c.teardown()
			return
		}

		switch env.Kind {
		case "response":
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			if ok {
				delete(c.pending, env.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- env
			}
		case "progress":
			if env.Event != nil {
				// Drop rather than block if the consumer is gone
				select {
				case c.events <- *env.Event:
				default:
				}
			}
		}
	}
}

func (c *Conn) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	close(c.events)
}

// Request sends an action and awaits its typed reply.
func (c *Conn) Request(ctx context.Context, action Action, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("bus connection closed")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan envelope, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err = wsjson.Write(ctx, c.conn, envelope{
		Kind:    "request",
		ID:      id,
		Action:  action,
		Payload: data,
	})
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case env, ok := <-ch:
		if !ok {
			return fmt.Errorf("bus connection closed")
		}
		if env.Error != "" {
			return fmt.Errorf("%s", env.Error)
		}
		if out != nil && len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
}

// Events returns the unsolicited progress stream.
func (c *Conn) Events() <-chan ProgressEvent {
	return c.events
}

// Close tears the connection down.
func (c *Conn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.teardown()
	return err
}
