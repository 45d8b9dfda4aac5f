package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Watch is an open change stream.
type Watch struct {
	conn    *websocket.Conn
	changes chan Change
	done    chan struct{}
	quit    chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	err       error
}

// Watch opens a change stream for attrs (all attributes when empty). It
// returns once the server accepted the stream. Changes arrive until ctx is
// done, Close is called or the server goes away.
func (c *Client) Watch(ctx context.Context, attrs ...string) (*Watch, error) {
	u := c.base.JoinPath("/watch")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if len(attrs) > 0 {
		q := u.Query()
		for _, a := range attrs {
			q.Add("attr", a)
		}
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.Timeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &StatusError{
				Code:      resp.StatusCode,
				Message:   "watch rejected",
				RequestID: resp.Header.Get(RequestIDHeader),
			}
		}
		return nil, fmt.Errorf("watch %s: %w", u.Redacted(), err)
	}

	w := &Watch{
		conn:    conn,
		changes: make(chan Change),
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
	}
	go w.readLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()
	return w, nil
}

// Changes delivers the stream. It is closed when the stream ends.
func (w *Watch) Changes() <-chan Change {
	return w.changes
}

// Err reports why the stream ended. It is nil for an orderly close and only
// meaningful once Changes is closed.
func (w *Watch) Err() error {
	<-w.done
	return w.err
}

// Close ends the stream. Changes not yet received are discarded.
func (w *Watch) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.quit)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = w.conn.Close()
	})
	return err
}

func (w *Watch) readLoop(ctx context.Context) {
	defer close(w.done)
	defer close(w.changes)

	for {
		var c Change
		if err := w.conn.ReadJSON(&c); err != nil {
			if !w.orderly(ctx, err) {
				w.err = err
			}
			_ = w.Close()
			return
		}
		select {
		case w.changes <- c:
		case <-w.quit:
			return
		case <-ctx.Done():
			_ = w.Close()
			return
		}
	}
}

// orderly reports whether err ends the stream the way either side asked for.
func (w *Watch) orderly(ctx context.Context, err error) bool {
	if ctx.Err() != nil || w.closed.Load() {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
