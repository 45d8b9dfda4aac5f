package transport

import (
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/log"
)

// Watch stream timing.
const (
	// DefaultWatchBacklog is how many changes may queue for a slow watcher
	// before further changes are dropped and counted.
	DefaultWatchBacklog = 64

	watchWriteWait  = 10 * time.Second
	watchPongWait   = 60 * time.Second
	watchPingPeriod = watchPongWait * 9 / 10
)

// Change is one accepted value change as streamed on /watch.
type Change struct {
	Attribute string    `json:"attribute"`
	Value     int64     `json:"value"`
	Time      time.Time `json:"time"`

	// Dropped counts changes discarded before this one because the
	// watcher fell behind.
	Dropped uint64 `json:"dropped,omitempty"`
}

// ChangeSource delivers accepted value changes. *attr.Store implements it.
type ChangeSource interface {
	Subscribe(sub attr.Subscriber) (cancel func())
}

// handleWatch upgrades to a WebSocket and streams changes as JSON text
// messages until either side closes. Repeated ?attr= parameters restrict
// the stream to those attributes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(RequestIDHeader, requestID)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Changes == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "watch not available", RequestID: requestID})
		return
	}

	filter := r.URL.Query()["attr"]

	// Subscribe before the handshake completes so a write the client makes
	// right after Watch returns is not missed.
	sub := newWatchSubscription(s.config.WatchBacklog, filter)
	cancel := s.config.Changes.Subscribe(sub)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, http.Header{RequestIDHeader: {requestID}})
	if err != nil {
		// Upgrade has already replied
		return
	}

	watched := "*"
	if len(filter) > 0 {
		watched = strings.Join(filter, ",")
	}
	s.logAccess(r, requestID, log.AccessEvent{
		Op:        log.OpWatch,
		Attribute: watched,
		Outcome:   log.OutcomeAccepted,
	})

	s.serveWatch(conn, sub)
}

// watchSubscription queues changes for one watcher.
type watchSubscription struct {
	filter  []string
	changes chan Change
	dropped atomic.Uint64
}

func newWatchSubscription(backlog int, filter []string) *watchSubscription {
	return &watchSubscription{
		filter:  filter,
		changes: make(chan Change, backlog),
	}
}

// OnAttributeChanged never blocks the writer; a full queue drops the change.
func (w *watchSubscription) OnAttributeChanged(name string, value int64) {
	if len(w.filter) > 0 && !slices.Contains(w.filter, name) {
		return
	}
	select {
	case w.changes <- Change{Attribute: name, Value: value, Time: time.Now()}:
	default:
		w.dropped.Add(1)
	}
}

func (s *Server) serveWatch(conn *websocket.Conn, sub *watchSubscription) {
	if !s.trackWatcher(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrackWatcher(conn)

	// Clients only send control frames; the read loop answers them and
	// notices when the peer goes away.
	gone := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(watchPingPeriod)
	defer ping.Stop()

	for {
		select {
		case c := <-sub.changes:
			c.Dropped = sub.dropped.Swap(0)
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(c); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

// trackWatcher registers conn so shutdown can close it. Hijacked
// connections are not closed by http.Server.Shutdown.
func (s *Server) trackWatcher(conn *websocket.Conn) bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watchClosed {
		return false
	}
	s.watchers[conn] = struct{}{}
	return true
}

func (s *Server) untrackWatcher(conn *websocket.Conn) {
	s.watchMu.Lock()
	delete(s.watchers, conn)
	s.watchMu.Unlock()
	_ = conn.Close()
}

// closeWatchers says goodbye to every open stream and refuses new ones.
func (s *Server) closeWatchers() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.watchClosed = true
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range s.watchers {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
	clear(s.watchers)
}

// Watchers returns the number of open watch streams.
func (s *Server) Watchers() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.watchers)
}
