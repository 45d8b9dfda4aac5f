// Package inspect provides namespace inspection and attribute manipulation
// utilities.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "simple_sysfs/simple_sysfs_data_1")
//   - Resolving attribute names case-insensitively
//   - Reading and writing attribute entries
//   - Formatting output for display
package inspect

import (
	"errors"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// Path represents a parsed inspection path.
// Format: [/absolute/root/]dir[/entry]
type Path struct {
	// Segments are the path components in order.
	Segments []string

	// Absolute indicates the input started with "/".
	Absolute bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "dir/entry" - relative to the tree root
//   - "/sys/module/mod/dir/entry" - absolute
//   - "dir" or "" style partial paths (for listing)
//
// Empty components ("//"), "." and ".." are rejected. A single trailing
// slash is ignored.
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	p := &Path{Raw: input}
	if input == "/" {
		p.Absolute = true
		return p, nil
	}

	trimmed := input
	if strings.HasPrefix(trimmed, "/") {
		p.Absolute = true
		trimmed = trimmed[1:]
	}
	trimmed = strings.TrimSuffix(trimmed, "/")

	for _, part := range strings.Split(trimmed, "/") {
		switch part {
		case "", ".", "..":
			return nil, ErrInvalidPath
		}
		p.Segments = append(p.Segments, part)
	}
	return p, nil
}

// String returns the path in canonical form.
func (p *Path) String() string {
	s := strings.Join(p.Segments, "/")
	if p.Absolute {
		return "/" + s
	}
	return s
}

// Base returns the last component, or "" for the root.
func (p *Path) Base() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Dir returns the path without its last component.
func (p *Path) Dir() *Path {
	if len(p.Segments) == 0 {
		return &Path{Absolute: p.Absolute}
	}
	segs := make([]string, len(p.Segments)-1)
	copy(segs, p.Segments)
	return &Path{Segments: segs, Absolute: p.Absolute}
}

// Join returns p extended by name.
func (p *Path) Join(name string) *Path {
	segs := make([]string, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return &Path{Segments: append(segs, name), Absolute: p.Absolute}
}
