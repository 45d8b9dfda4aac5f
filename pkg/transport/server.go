package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sysattr/sysattr-go/pkg/log"
	"github.com/sysattr/sysattr-go/pkg/namespace"
	"github.com/sysattr/sysattr-go/pkg/version"
)

const (
	// DefaultPort is the default listen port.
	DefaultPort = 8377

	// DefaultMaxBodySize matches the page-sized buffer entries are written from.
	DefaultMaxBodySize = 4096

	// RequestIDHeader carries the per-request ID.
	RequestIDHeader = "X-Request-ID"

	nsPrefix = "/ns"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Tree is the namespace to serve (required).
	Tree *namespace.Tree

	// Address to listen on (e.g., ":8377" or "127.0.0.1:8377").
	Address string

	// MaxBodySize is the largest accepted write (default: 4096).
	MaxBodySize int64

	// ShutdownTimeout bounds Stop (default: 5s).
	ShutdownTimeout time.Duration

	// Version is reported by /healthz (default: version.Current).
	Version string

	// Logger receives one access event per namespace request (optional).
	Logger log.Logger

	// Changes feeds /watch. Without it the route answers 404.
	Changes ChangeSource

	// WatchBacklog is the per-watcher queue length (default: 64).
	WatchBacklog int
}

// Server serves a namespace tree over HTTP.
type Server struct {
	config ServerConfig
	logger log.Logger
	mux    *http.ServeMux

	server   *http.Server
	listener net.Listener

	running atomic.Bool
	wg      sync.WaitGroup

	upgrader    websocket.Upgrader
	watchMu     sync.Mutex
	watchers    map[*websocket.Conn]struct{}
	watchClosed bool
}

// NewServer creates a new Server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Tree == nil {
		return nil, fmt.Errorf("Tree is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if config.Version == "" {
		config.Version = version.Current
	}
	if config.WatchBacklog <= 0 {
		config.WatchBacklog = DefaultWatchBacklog
	}

	s := &Server{
		config:   config,
		logger:   log.OrNoop(config.Logger),
		mux:      http.NewServeMux(),
		watchers: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/watch", s.handleWatch)
	s.mux.HandleFunc(nsPrefix, s.handleNode)
	s.mux.HandleFunc(nsPrefix+"/", s.handleNode)
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts listening and serving. The server stops when ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.watchMu.Lock()
	s.watchClosed = false
	s.watchMu.Unlock()
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logError(err, "serve")
		}
	}()

	stopped := s.stopped()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			_ = s.shutdown()
		case <-stopped:
		}
	}()

	return nil
}

// Stop gracefully shuts the server down and waits for it to exit.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	err := s.shutdown()
	s.wg.Wait()
	return err
}

func (s *Server) shutdown() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.closeWatchers()
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// stopped returns a channel closed once the server is no longer running.
func (s *Server) stopped() <-chan struct{} {
	done := make(chan struct{})
	s.server.RegisterOnShutdown(func() { close(done) })
	return done
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Health is the /healthz response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Root    string `json:"root"`
	Nodes   int    `json:"nodes"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, Health{
		Status:  "ok",
		Version: s.config.Version,
		Root:    s.config.Tree.Root().Path(),
		Nodes:   s.config.Tree.Len(),
	})
}

// WriteResult is the response to a write.
type WriteResult struct {
	Consumed int `json:"consumed"`
}

// handleNode reads, lists or writes a node.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(RequestIDHeader, requestID)
	p := s.treePath(r.URL.Path)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleRead(w, r, requestID, p)
	case http.MethodPut, http.MethodPost:
		s.handleWrite(w, r, requestID, p)
	default:
		w.Header().Set("Allow", "GET, HEAD, PUT, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request, requestID, p string) {
	info, err := s.config.Tree.Stat(p)
	if err != nil {
		s.fail(w, r, requestID, log.OpRead, p, nil, err)
		return
	}

	if info.IsDir {
		infos, err := s.config.Tree.List(p)
		if err != nil {
			s.fail(w, r, requestID, log.OpRead, p, nil, err)
			return
		}
		writeJSON(w, http.StatusOK, infos)
		return
	}

	text, err := s.config.Tree.Read(p)
	if err != nil {
		s.fail(w, r, requestID, log.OpRead, p, nil, err)
		return
	}
	s.logAccess(r, requestID, log.AccessEvent{
		Op:        log.OpRead,
		Attribute: p,
		Outcome:   log.OutcomeAccepted,
	})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, text)
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request, requestID, p string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		s.fail(w, r, requestID, log.OpWrite, p, nil, err)
		return
	}

	n, err := s.config.Tree.Write(p, body)
	if err != nil {
		s.fail(w, r, requestID, log.OpWrite, p, body, err)
		return
	}
	s.logAccess(r, requestID, log.AccessEvent{
		Op:        log.OpWrite,
		Attribute: p,
		Input:     log.CaptureInput(body),
		Outcome:   log.OutcomeConsumed,
		Consumed:  n,
	})

	writeJSON(w, http.StatusOK, WriteResult{Consumed: n})
}

// fail logs a rejected request and writes the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, requestID string, op log.Op, p string, body []byte, err error) {
	status := statusFor(err)

	outcome := log.OutcomeRejectedParse
	switch status {
	case http.StatusNotFound:
		outcome = log.OutcomeNotFound
	case http.StatusForbidden:
		outcome = log.OutcomeDenied
	}
	if status == http.StatusInternalServerError {
		s.logError(err, r.Method+" "+r.URL.Path)
	} else {
		s.logAccess(r, requestID, log.AccessEvent{
			Op:        op,
			Attribute: p,
			Input:     log.CaptureInput(body),
			Outcome:   outcome,
		})
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}

// treePath turns a URL path into a tree path. Paths that start with the
// tree's root path are kept absolute, everything else is relative.
func (s *Server) treePath(urlPath string) string {
	rest := strings.TrimPrefix(urlPath, nsPrefix)
	rest = strings.TrimPrefix(rest, "/")
	rest = strings.TrimSuffix(rest, "/")

	root := s.config.Tree.Root().Path()
	abs := "/" + rest
	if abs == root || strings.HasPrefix(abs, strings.TrimSuffix(root, "/")+"/") {
		return abs
	}
	return rest
}

func (s *Server) logAccess(r *http.Request, requestID string, access log.AccessEvent) {
	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		Source:     log.SourceTransport,
		Category:   log.CategoryAccess,
		RemoteAddr: r.RemoteAddr,
		RequestID:  requestID,
		Access:     &access,
	})
}

func (s *Server) logError(err error, where string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Source:  log.SourceTransport,
			Message: err.Error(),
			Context: where,
		},
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
