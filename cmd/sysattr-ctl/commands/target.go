// Package commands implements the sysattr-ctl CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sysattr/sysattr-go/pkg/discovery"
	"github.com/sysattr/sysattr-go/pkg/inspect"
	"github.com/sysattr/sysattr-go/pkg/transport"
)

// ErrNoTarget is returned when neither a URL nor a base name is given.
var ErrNoTarget = errors.New("no target: use -url or -base")

// Finder locates a host by the directory it serves. Implemented by
// discovery.MDNSBrowser.
type Finder interface {
	FindByBaseName(ctx context.Context, baseName string) (*discovery.NamespaceService, error)
}

// TargetOptions selects the host to talk to.
type TargetOptions struct {
	// URL is the host's base URL. It takes precedence over BaseName.
	URL string

	// BaseName is looked up via mDNS when URL is empty.
	BaseName string

	// Timeout bounds each request.
	Timeout time.Duration

	// Retries repeats reads that hit an unreachable or busy host.
	Retries int
}

// Target is a connected host.
type Target struct {
	Client    *transport.Client
	Inspector *inspect.RemoteInspector

	// Service is set when the host was found by browsing.
	Service *discovery.NamespaceService
}

// Connect resolves opts to a host. finder is only used without a URL.
func Connect(ctx context.Context, opts TargetOptions, finder Finder) (*Target, error) {
	t := &Target{}
	baseURL := opts.URL
	if baseURL == "" {
		if opts.BaseName == "" || finder == nil {
			return nil, ErrNoTarget
		}
		svc, err := finder.FindByBaseName(ctx, opts.BaseName)
		if err != nil {
			return nil, err
		}
		t.Service = svc
		baseURL = svc.URL()
	}

	client, err := transport.NewClient(transport.ClientConfig{
		BaseURL: baseURL,
		Timeout: opts.Timeout,
		Retries: opts.Retries,
	})
	if err != nil {
		return nil, err
	}
	t.Client = client
	t.Inspector = inspect.NewRemoteInspector(client)
	return t, nil
}

// parseOptionalPath parses p, treating "" as the root.
func parseOptionalPath(p string) (*inspect.Path, error) {
	if p == "" {
		return nil, nil
	}
	return inspect.ParsePath(p)
}

// requirePath parses a path that must name something below the root.
func requirePath(p string) (*inspect.Path, error) {
	parsed, err := inspect.ParsePath(p)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", p, err)
	}
	return parsed, nil
}
