package namespace

import (
	"errors"
	"io/fs"
)

// Entry and directory modes.
const (
	// DefaultEntryMode is owner and group read-write, others read.
	DefaultEntryMode fs.FileMode = 0o664

	// DirMode is the mode of directories created on a Tree.
	DirMode fs.FileMode = fs.ModeDir | 0o755
)

// Host errors.
var (
	ErrExist      = errors.New("node already exists")
	ErrNotExist   = errors.New("node does not exist")
	ErrNoSpace    = errors.New("no space left for node")
	ErrNotDir     = errors.New("not a directory")
	ErrIsDir      = errors.New("is a directory")
	ErrPermission = errors.New("permission denied")
	ErrInvalid    = errors.New("invalid argument")
)

// Node is a directory or entry created on a Host.
type Node interface {
	// Name returns the last path element.
	Name() string

	// Path returns the absolute path of the node.
	Path() string

	// IsDir reports whether the node is a directory.
	IsDir() bool

	// Mode returns the permission bits (and fs.ModeDir for directories).
	Mode() fs.FileMode
}

// Handler serves reads and writes of one entry.
type Handler interface {
	// Show returns the entry's current text.
	Show() (string, error)

	// Store consumes a write and returns the number of bytes processed.
	Store(data []byte) (int, error)
}

// HandlerFuncs adapts a pair of functions to the Handler interface.
// A nil function makes the corresponding operation fail with ErrPermission.
type HandlerFuncs struct {
	ShowFunc  func() (string, error)
	StoreFunc func(data []byte) (int, error)
}

// Show calls ShowFunc.
func (h HandlerFuncs) Show() (string, error) {
	if h.ShowFunc == nil {
		return "", ErrPermission
	}
	return h.ShowFunc()
}

// Store calls StoreFunc.
func (h HandlerFuncs) Store(data []byte) (int, error) {
	if h.StoreFunc == nil {
		return 0, ErrPermission
	}
	return h.StoreFunc(data)
}

// Host is a namespace that can present named, directory-like nodes backed by
// handlers. Implementations must be safe for concurrent use.
type Host interface {
	// Root returns the well-known parent scope new directories go under.
	Root() Node

	// CreateDir creates a directory called name under parent.
	CreateDir(parent Node, name string) (Node, error)

	// CreateEntry creates an entry called name in dir, served by h.
	CreateEntry(dir Node, name string, mode fs.FileMode, h Handler) (Node, error)

	// Remove removes n and everything below it.
	Remove(n Node) error
}
