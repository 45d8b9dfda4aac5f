package inspect

import (
	"context"
	"errors"

	"github.com/sysattr/sysattr-go/pkg/namespace"
)

// SessionReader defines the interface for reading and writing a remote
// namespace. This is implemented by transport.Client.
type SessionReader interface {
	BaseURL() string
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path string, data []byte) (int, error)
	List(ctx context.Context, path string) ([]namespace.Info, error)
}

// RemoteInspector provides inspection and mutation capabilities for a
// namespace served by another process.
type RemoteInspector struct {
	session SessionReader
}

// NewRemoteInspector creates a new remote inspector for the given session.
func NewRemoteInspector(session SessionReader) *RemoteInspector {
	return &RemoteInspector{
		session: session,
	}
}

// Target returns the remote host's base URL.
func (r *RemoteInspector) Target() string {
	return r.session.BaseURL()
}

// ReadAttribute reads a single entry from the remote host.
func (r *RemoteInspector) ReadAttribute(ctx context.Context, path *Path) (string, error) {
	if path == nil {
		return "", errors.New("path is nil")
	}
	if len(path.Segments) == 0 {
		return "", errors.New("path names the root, not an entry")
	}
	return r.session.Read(ctx, path.String())
}

// WriteAttribute writes a single entry on the remote host.
func (r *RemoteInspector) WriteAttribute(ctx context.Context, path *Path, value string) (int, error) {
	if path == nil {
		return 0, errors.New("path is nil")
	}
	if len(path.Segments) == 0 {
		return 0, errors.New("path names the root, not an entry")
	}
	return r.session.Write(ctx, path.String(), []byte(value))
}

// List lists a remote directory. A nil path lists the root.
func (r *RemoteInspector) List(ctx context.Context, path *Path) ([]namespace.Info, error) {
	p := ""
	if path != nil {
		p = path.String()
	}
	return r.session.List(ctx, p)
}

// ReadAll reads every entry of a remote directory, keyed by entry name.
// Entries that cannot be read are skipped.
func (r *RemoteInspector) ReadAll(ctx context.Context, dir *Path) (map[string]string, error) {
	infos, err := r.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(infos))
	for _, info := range infos {
		if info.IsDir {
			continue
		}
		text, err := r.session.Read(ctx, info.Path)
		if err != nil {
			continue
		}
		out[info.Name] = text
	}
	return out, nil
}
