package inspect

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/namespace"
)

// Inspector errors.
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNotEntry     = errors.New("path is not an attribute entry")
)

// Inspector provides inspection and mutation capabilities for a local
// namespace tree.
type Inspector struct {
	tree  *namespace.Tree
	store *attr.Store
}

// NewInspector creates a new Inspector for tree. store is optional; when
// set, entries named after its attributes are annotated with their bounds.
func NewInspector(tree *namespace.Tree, store *attr.Store) *Inspector {
	return &Inspector{tree: tree, store: store}
}

// Tree returns the underlying tree.
func (i *Inspector) Tree() *namespace.Tree {
	return i.tree
}

// NodeInfo represents a node and, for directories, its subtree.
type NodeInfo struct {
	Name  string
	Path  string
	IsDir bool
	Mode  fs.FileMode

	// Text is what a read of the entry returned (entries only).
	Text string

	// Value and Definition are set for entries backed by a store attribute.
	Value      *int64
	Definition *attr.Definition

	Children []NodeInfo
}

// Resolve maps p onto the tree and returns the canonical path relative to
// the root. Each component is matched exactly first, then case-insensitively,
// then by its short name.
func (i *Inspector) Resolve(p *Path) (string, error) {
	segs := p.Segments
	if p.Absolute {
		rootSegs := strings.Split(strings.Trim(i.tree.Root().Path(), "/"), "/")
		if i.tree.Root().Path() == "/" {
			rootSegs = nil
		}
		if len(segs) < len(rootSegs) {
			return "", fmt.Errorf("%w: %s is outside %s", ErrNodeNotFound, p, i.tree.Root().Path())
		}
		for k, s := range rootSegs {
			if segs[k] != s {
				return "", fmt.Errorf("%w: %s is outside %s", ErrNodeNotFound, p, i.tree.Root().Path())
			}
		}
		segs = segs[len(rootSegs):]
	}

	resolved := make([]string, 0, len(segs))
	dir := ""
	for _, seg := range segs {
		infos, err := i.tree.List(dir)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNodeNotFound, err)
		}
		name, ok := resolveChild(infos, seg)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNodeNotFound, strings.Join(append(resolved, seg), "/"))
		}
		resolved = append(resolved, name)
		dir = strings.Join(resolved, "/")
	}
	return dir, nil
}

func resolveChild(infos []namespace.Info, seg string) (string, bool) {
	names := make([]string, len(infos))
	for k, info := range infos {
		names[k] = info.Name
	}
	if name, ok := ResolveName(names, seg); ok {
		return name, true
	}

	// Short names only apply inside a directory, where the directory name
	// is the prefix.
	for _, info := range infos {
		base := strings.TrimSuffix(info.Path, "/"+info.Name)
		dirName := base[strings.LastIndex(base, "/")+1:]
		if strings.EqualFold(ShortName(dirName, info.Name), seg) {
			return info.Name, true
		}
	}
	return "", false
}

// InspectTree returns the whole tree below the root.
func (i *Inspector) InspectTree() (*NodeInfo, error) {
	return i.inspect("")
}

// Inspect returns the node at p and everything below it.
func (i *Inspector) Inspect(p *Path) (*NodeInfo, error) {
	rel, err := i.Resolve(p)
	if err != nil {
		return nil, err
	}
	return i.inspect(rel)
}

func (i *Inspector) inspect(rel string) (*NodeInfo, error) {
	info, err := i.tree.Stat(rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeNotFound, err)
	}
	node := i.nodeFor(info)
	if !info.IsDir {
		return &node, nil
	}

	children, err := i.tree.List(rel)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childRel := child.Name
		if rel != "" {
			childRel = rel + "/" + child.Name
		}
		c, err := i.inspect(childRel)
		if err != nil {
			// Removed while walking.
			continue
		}
		node.Children = append(node.Children, *c)
	}
	return &node, nil
}

func (i *Inspector) nodeFor(info namespace.Info) NodeInfo {
	node := NodeInfo{
		Name:  info.Name,
		Path:  info.Path,
		IsDir: info.IsDir,
		Mode:  info.Mode,
	}
	if info.IsDir {
		return node
	}

	if text, err := i.tree.Read(info.Path); err == nil {
		node.Text = text
	}
	if i.store != nil {
		if a, err := i.store.Lookup(info.Name); err == nil {
			v := a.Value()
			def := a.Definition()
			node.Value = &v
			node.Definition = &def
		}
	}
	return node
}

// ReadAttribute reads the entry at p and returns its text.
func (i *Inspector) ReadAttribute(p *Path) (string, error) {
	rel, err := i.entry(p)
	if err != nil {
		return "", err
	}
	return i.tree.Read(rel)
}

// WriteAttribute writes value to the entry at p and returns the count the
// entry consumed. A missing trailing newline is not added.
func (i *Inspector) WriteAttribute(p *Path, value string) (int, error) {
	rel, err := i.entry(p)
	if err != nil {
		return 0, err
	}
	return i.tree.Write(rel, []byte(value))
}

func (i *Inspector) entry(p *Path) (string, error) {
	rel, err := i.Resolve(p)
	if err != nil {
		return "", err
	}
	info, err := i.tree.Stat(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNodeNotFound, err)
	}
	if info.IsDir {
		return "", fmt.Errorf("%w: %s", ErrNotEntry, info.Path)
	}
	return rel, nil
}

// FormatTree formats a node and its subtree for display.
func (i *Inspector) FormatTree(node *NodeInfo, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Namespace: %s\n", node.Path))
	sb.WriteString("---\n")
	i.formatNode(&sb, node, formatter, 0)
	return sb.String()
}

func (i *Inspector) formatNode(sb *strings.Builder, node *NodeInfo, f *Formatter, depth int) {
	if node.IsDir {
		header := node.Name + "/"
		if f.ShowModes {
			header = fmt.Sprintf("%s %s", FormatMode(node.Mode), header)
		}
		sb.WriteString(f.Indent(depth, header) + "\n")
		for k := range node.Children {
			i.formatNode(sb, &node.Children[k], f, depth+1)
		}
		return
	}
	sb.WriteString(f.Indent(depth, f.FormatEntry(node)) + "\n")
}
