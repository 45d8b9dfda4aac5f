package namespace

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/log"
)

// Publisher errors.
var (
	ErrAlreadyPublished = errors.New("namespace already published")
	ErrStaleHandle      = errors.New("handle does not belong to the current publication")
)

// State is the publisher lifecycle state.
type State uint8

const (
	// StateUnpublished means no directory is registered.
	StateUnpublished State = iota

	// StatePublished means the directory and its entries are registered.
	StatePublished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnpublished:
		return "UNPUBLISHED"
	case StatePublished:
		return "PUBLISHED"
	default:
		return "UNKNOWN"
	}
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Parent is the directory new namespaces are created under.
	// Defaults to the host root.
	Parent Node

	// EntryMode is the mode of attribute entries (default: DefaultEntryMode).
	EntryMode fs.FileMode

	// Logger receives lifecycle events (optional).
	Logger log.Logger
}

// Handle owns a published directory and its entries.
// It carries no attribute data, only what Teardown needs to remove them.
type Handle struct {
	id          uuid.UUID
	baseName    string
	dir         Node
	entries     []Node
	publishedAt time.Time
}

// ID returns the session ID of the publication.
func (h *Handle) ID() string {
	return h.id.String()
}

// BaseName returns the directory name.
func (h *Handle) BaseName() string {
	return h.baseName
}

// Path returns the absolute path of the directory.
func (h *Handle) Path() string {
	return h.dir.Path()
}

// Entries returns the absolute paths of the attribute entries in order.
func (h *Handle) Entries() []string {
	paths := make([]string, len(h.entries))
	for i, e := range h.entries {
		paths[i] = e.Path()
	}
	return paths
}

// PublishedAt returns when the publication completed.
func (h *Handle) PublishedAt() time.Time {
	return h.publishedAt
}

// Publisher registers an attribute store on a Host and removes it again.
// It holds at most one publication at a time.
type Publisher struct {
	host   Host
	config PublisherConfig
	logger log.Logger

	mu     sync.Mutex
	state  State
	handle *Handle
	store  *attr.Store
}

// NewPublisher creates a Publisher for host.
func NewPublisher(host Host, config PublisherConfig) *Publisher {
	if config.Parent == nil {
		config.Parent = host.Root()
	}
	if config.EntryMode == 0 {
		config.EntryMode = DefaultEntryMode
	}
	return &Publisher{
		host:   host,
		config: config,
		logger: log.OrNoop(config.Logger),
	}
}

// State returns the current lifecycle state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Handle returns the current publication, or nil when unpublished.
func (p *Publisher) Handle() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Publish creates baseName under the parent scope with one entry per
// attribute of store, named after the attribute. If any node fails to
// register, all nodes created so far are removed and the error is returned.
func (p *Publisher) Publish(baseName string, store *attr.Store) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePublished {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPublished, p.handle.Path())
	}

	h, err := p.register(baseName, store)
	if err != nil {
		p.logger.Log(log.Event{
			Timestamp: time.Now(),
			Source:    log.SourceNamespace,
			Category:  log.CategoryLifecycle,
			Lifecycle: &log.LifecycleEvent{
				Action:   log.ActionRollback,
				BaseName: baseName,
				Entries:  store.Len(),
				Reason:   err.Error(),
			},
		})
		return nil, err
	}

	p.state = StatePublished
	p.handle = h
	p.store = store
	store.BindSession(h.ID())

	p.logger.Log(log.Event{
		Timestamp: h.publishedAt,
		SessionID: h.ID(),
		Source:    log.SourceNamespace,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{
			Action:   log.ActionPublish,
			BaseName: baseName,
			Path:     h.Path(),
			Entries:  len(h.entries),
		},
	})
	return h, nil
}

func (p *Publisher) register(baseName string, store *attr.Store) (h *Handle, err error) {
	var sc scope
	defer func() {
		if rerr := sc.close(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()

	dir, err := p.host.CreateDir(p.config.Parent, baseName)
	if err != nil {
		return nil, fmt.Errorf("create directory %s: %w", baseName, err)
	}
	sc.acquire(func() error { return p.host.Remove(dir) })

	h = &Handle{
		id:       uuid.New(),
		baseName: baseName,
		dir:      dir,
		entries:  make([]Node, 0, store.Len()),
	}

	for _, a := range store.Attributes() {
		entry, err := p.host.CreateEntry(dir, a.Name(), p.config.EntryMode, bind(a))
		if err != nil {
			return nil, fmt.Errorf("create entry %s/%s: %w", baseName, a.Name(), err)
		}
		sc.acquire(func() error { return p.host.Remove(entry) })
		h.entries = append(h.entries, entry)
	}

	sc.commit()
	h.publishedAt = time.Now()
	return h, nil
}

// bind ties an entry to one attribute. The handler never looks the
// attribute up by name.
func bind(a *attr.Attribute) Handler {
	return HandlerFuncs{
		ShowFunc:  a.Show,
		StoreFunc: a.Store,
	}
}

// Teardown removes the directory of h and all its entries.
// It is a no-op while unpublished. A handle from an earlier publication is
// rejected with ErrStaleHandle.
func (p *Publisher) Teardown(h *Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePublished {
		return nil
	}
	if h != p.handle {
		return ErrStaleHandle
	}

	if err := p.host.Remove(h.dir); err != nil {
		p.logger.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: h.ID(),
			Source:    log.SourceNamespace,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Source:  log.SourceNamespace,
				Message: err.Error(),
				Context: "teardown " + h.Path(),
			},
		})
		return fmt.Errorf("remove %s: %w", h.Path(), err)
	}

	p.store.BindSession("")
	p.state = StateUnpublished
	p.handle = nil
	p.store = nil

	p.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: h.ID(),
		Source:    log.SourceNamespace,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{
			Action:   log.ActionTeardown,
			BaseName: h.baseName,
			Path:     h.Path(),
			Entries:  len(h.entries),
		},
	})
	return nil
}
