package attr

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sysattr/sysattr-go/pkg/log"
)

// Store is an ordered, fixed collection of attributes keyed by name.
// It is safe for concurrent use.
type Store struct {
	attrs  []*Attribute
	byName map[string]*Attribute

	logger  log.Logger
	session atomic.Value // string

	subMu       sync.RWMutex
	subscribers []subscription
	nextSubID   uint64
}

type subscription struct {
	id  uint64
	sub Subscriber
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the access logger. Rejected writes are reported here.
func WithLogger(l log.Logger) Option {
	return func(s *Store) {
		s.logger = log.OrNoop(l)
	}
}

// NewStore builds a store from defs, preserving their order.
// Each definition is validated and names must be unique.
func NewStore(defs []Definition, opts ...Option) (*Store, error) {
	s := &Store{
		attrs:  make([]*Attribute, 0, len(defs)),
		byName: make(map[string]*Attribute, len(defs)),
		logger: log.NoopLogger{},
	}
	s.session.Store("")

	for _, opt := range opts {
		opt(s)
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := s.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
		}
		a := newAttribute(def, s)
		s.attrs = append(s.attrs, a)
		s.byName[def.Name] = a
	}

	return s, nil
}

// Len returns the number of attributes.
func (s *Store) Len() int {
	return len(s.attrs)
}

// Names returns the attribute names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.Name()
	}
	return names
}

// Attributes returns the attributes in insertion order.
func (s *Store) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Lookup returns the attribute called name.
func (s *Store) Lookup(name string) (*Attribute, error) {
	a, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a, nil
}

// Get formats the current value of the named attribute.
func (s *Store) Get(name string) (string, error) {
	a, err := s.Lookup(name)
	if err != nil {
		s.logNotFound(log.OpRead, name, nil)
		return "", err
	}
	return a.Show()
}

// Value returns the current value of the named attribute.
func (s *Store) Value(name string) (int64, error) {
	a, err := s.Lookup(name)
	if err != nil {
		return 0, err
	}
	return a.Value(), nil
}

// Set writes data to the named attribute and returns len(data).
// Only ErrNotFound is returned; malformed or out-of-range input is logged
// and ignored.
func (s *Store) Set(name string, data []byte) (int, error) {
	a, err := s.Lookup(name)
	if err != nil {
		s.logNotFound(log.OpWrite, name, data)
		return 0, err
	}
	return a.Store(data)
}

// SetStrict writes data to the named attribute and returns len(data) on
// success. Unlike Set it returns ErrParse or ErrOutOfRange when the value
// was rejected, together with a zero count.
func (s *Store) SetStrict(name string, data []byte) (int, error) {
	a, err := s.Lookup(name)
	if err != nil {
		s.logNotFound(log.OpWrite, name, data)
		return 0, err
	}
	if err := a.Write(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Snapshot returns every value in insertion order.
// Each value is read atomically; the snapshot as a whole is not.
func (s *Store) Snapshot() []NamedValue {
	out := make([]NamedValue, len(s.attrs))
	for i, a := range s.attrs {
		out[i] = NamedValue{Name: a.Name(), Value: a.Value()}
	}
	return out
}

// BindSession tags subsequent access events with id.
// Publishers call it with the session of the namespace they created.
func (s *Store) BindSession(id string) {
	s.session.Store(id)
}

// SessionID returns the session bound by BindSession.
func (s *Store) SessionID() string {
	return s.session.Load().(string)
}

// Subscribe adds a subscriber for change notifications and returns a
// function that removes it again.
func (s *Store) Subscribe(sub Subscriber) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscription{id: id, sub: sub})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.subscribers {
			if existing.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notifyChanged(name string, value int64) {
	s.subMu.RLock()
	subs := make([]subscription, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.sub.OnAttributeChanged(name, value)
	}
}

func (s *Store) logAccess(access log.AccessEvent) {
	s.logger.Log(log.Event{
		Timestamp: now(),
		SessionID: s.SessionID(),
		Source:    log.SourceStore,
		Category:  log.CategoryAccess,
		Access:    &access,
	})
}

func (s *Store) logNotFound(op log.Op, name string, data []byte) {
	access := log.AccessEvent{
		Op:        op,
		Attribute: name,
		Outcome:   log.OutcomeNotFound,
	}
	if op == log.OpWrite {
		access.Input = log.CaptureInput(data)
	}
	s.logAccess(access)
}
