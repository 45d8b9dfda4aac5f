package namespace

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/sysattr/sysattr-go/pkg/attr"
)

// Tree is an in-memory Host. Besides the Host operations it resolves paths
// so transports can read, write and list nodes by name.
type Tree struct {
	mu    sync.RWMutex
	root  *treeNode
	limit int
	count int
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithNodeLimit caps the number of nodes below the root. Creating more fails
// with ErrNoSpace. Zero means unlimited.
func WithNodeLimit(n int) TreeOption {
	return func(t *Tree) {
		t.limit = n
	}
}

// NewTree creates an empty tree whose root lives at rootPath
// (for example "/sys/module/simple_sysfs_mod").
func NewTree(rootPath string, opts ...TreeOption) *Tree {
	rootPath = path.Clean("/" + rootPath)
	t := &Tree{}
	t.root = &treeNode{
		tree:     t,
		name:     path.Base(rootPath),
		path:     rootPath,
		mode:     DirMode,
		children: make(map[string]*treeNode),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// treeNode is the Node implementation of Tree.
type treeNode struct {
	tree    *Tree
	parent  *treeNode
	name    string
	path    string
	mode    fs.FileMode
	handler Handler

	children map[string]*treeNode
	order    []string
	removed  bool
}

func (n *treeNode) Name() string      { return n.name }
func (n *treeNode) Path() string      { return n.path }
func (n *treeNode) IsDir() bool       { return n.mode.IsDir() }
func (n *treeNode) Mode() fs.FileMode { return n.mode }

// Info describes a node for listings.
type Info struct {
	Name  string      `json:"name"`
	Path  string      `json:"path"`
	IsDir bool        `json:"is_dir"`
	Mode  fs.FileMode `json:"mode"`
}

func (n *treeNode) info() Info {
	return Info{Name: n.name, Path: n.path, IsDir: n.IsDir(), Mode: n.mode}
}

// Root returns the root directory.
func (t *Tree) Root() Node {
	return t.root
}

// Len returns the number of nodes below the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// CreateDir creates a directory called name under parent (the root if nil).
func (t *Tree) CreateDir(parent Node, name string) (Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.dirLocked(parent)
	if err != nil {
		return nil, err
	}
	n, err := t.addLocked(p, name, DirMode, nil)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateEntry creates an entry called name in dir, served by h.
func (t *Tree) CreateEntry(dir Node, name string, mode fs.FileMode, h Handler) (Node, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler for %s", ErrInvalid, name)
	}
	if mode&^fs.ModePerm != 0 {
		return nil, fmt.Errorf("%w: entry mode %v", ErrInvalid, mode)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.dirLocked(dir)
	if err != nil {
		return nil, err
	}
	n, err := t.addLocked(p, name, mode, h)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Remove removes n and everything below it. The root cannot be removed.
func (t *Tree) Remove(n Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tn, err := t.ownLocked(n)
	if err != nil {
		return err
	}
	if tn == t.root {
		return fmt.Errorf("%w: cannot remove root", ErrInvalid)
	}

	parent := tn.parent
	delete(parent.children, tn.name)
	for i, name := range parent.order {
		if name == tn.name {
			parent.order = append(parent.order[:i], parent.order[i+1:]...)
			break
		}
	}
	t.count -= markRemoved(tn)
	return nil
}

// markRemoved flags n and its descendants and returns how many there were.
func markRemoved(n *treeNode) int {
	count := 1
	n.removed = true
	for _, c := range n.children {
		count += markRemoved(c)
	}
	return count
}

// Lookup resolves p, which is either absolute (under the root path) or
// relative to the root.
func (t *Tree) Lookup(p string) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookupLocked(p)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Stat returns information about the node at p.
func (t *Tree) Stat(p string) (Info, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookupLocked(p)
	if err != nil {
		return Info{}, err
	}
	return n.info(), nil
}

// List returns the children of the directory at p in creation order.
func (t *Tree) List(p string) ([]Info, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookupLocked(p)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, n.path)
	}

	out := make([]Info, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name].info())
	}
	return out, nil
}

// Read returns the text of the entry at p.
// The handler runs on the caller's goroutine without the tree lock held.
func (t *Tree) Read(p string) (string, error) {
	h, err := t.handlerFor(p, 0o444)
	if err != nil {
		return "", err
	}
	return h.Show()
}

// Write passes data to the entry at p and returns the count its handler
// reports. The entry must be owner-writable.
func (t *Tree) Write(p string, data []byte) (int, error) {
	h, err := t.handlerFor(p, 0o200)
	if err != nil {
		return 0, err
	}
	return h.Store(data)
}

func (t *Tree) handlerFor(p string, perm fs.FileMode) (Handler, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookupLocked(p)
	if err != nil {
		return nil, err
	}
	if n.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDir, n.path)
	}
	if n.mode&perm == 0 {
		return nil, fmt.Errorf("%w: %s (%v)", ErrPermission, n.path, n.mode)
	}
	return n.handler, nil
}

func (t *Tree) lookupLocked(p string) (*treeNode, error) {
	rel, err := t.relative(p)
	if err != nil {
		return nil, err
	}

	n := t.root
	if rel == "" {
		return n, nil
	}
	for _, part := range strings.Split(rel, "/") {
		if !n.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDir, n.path)
		}
		child, ok := n.children[part]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path.Join(n.path, part))
		}
		n = child
	}
	return n, nil
}

// relative converts p to a slash-separated path relative to the root.
func (t *Tree) relative(p string) (string, error) {
	if p == "" || p == "." {
		return "", nil
	}
	if strings.HasPrefix(p, "/") {
		clean := path.Clean(p)
		if clean == t.root.path {
			return "", nil
		}
		prefix := strings.TrimSuffix(t.root.path, "/") + "/"
		if !strings.HasPrefix(clean, prefix) {
			return "", fmt.Errorf("%w: %s is outside %s", ErrNotExist, p, t.root.path)
		}
		return strings.TrimPrefix(clean, prefix), nil
	}

	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s escapes the root", ErrInvalid, p)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// dirLocked resolves a parent argument to a live directory on this tree.
func (t *Tree) dirLocked(n Node) (*treeNode, error) {
	if n == nil {
		return t.root, nil
	}
	tn, err := t.ownLocked(n)
	if err != nil {
		return nil, err
	}
	if !tn.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, tn.path)
	}
	return tn, nil
}

// ownLocked checks that n is a live node created by this tree.
func (t *Tree) ownLocked(n Node) (*treeNode, error) {
	tn, ok := n.(*treeNode)
	if !ok || tn.tree != t {
		return nil, fmt.Errorf("%w: node does not belong to this tree", ErrInvalid)
	}
	if tn.removed {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, tn.path)
	}
	return tn, nil
}

func (t *Tree) addLocked(parent *treeNode, name string, mode fs.FileMode, h Handler) (*treeNode, error) {
	if err := attr.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, exists := parent.children[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrExist, path.Join(parent.path, name))
	}
	if t.limit > 0 && t.count >= t.limit {
		return nil, fmt.Errorf("%w: %s (limit %d)", ErrNoSpace, path.Join(parent.path, name), t.limit)
	}

	n := &treeNode{
		tree:    t,
		parent:  parent,
		name:    name,
		path:    path.Join(parent.path, name),
		mode:    mode,
		handler: h,
	}
	if mode.IsDir() {
		n.children = make(map[string]*treeNode)
	}
	parent.children[name] = n
	parent.order = append(parent.order, name)
	t.count++
	return n, nil
}

// Compile-time interface satisfaction check.
var _ Host = (*Tree)(nil)
