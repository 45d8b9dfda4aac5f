package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/discovery"
	"github.com/sysattr/sysattr-go/pkg/namespace"
	"github.com/sysattr/sysattr-go/pkg/transport"
	"github.com/sysattr/sysattr-go/pkg/version"
)

// startHost serves the reference namespace and returns its URL.
func startHost(t *testing.T, ver string) (string, *attr.Store) {
	t.Helper()

	store, err := attr.NewStore([]attr.Definition{
		{Name: "simple_sysfs_data_1", Min: 0, Max: 1000},
		{Name: "simple_sysfs_data_2", Min: 0, Max: 1000},
	})
	require.NoError(t, err)

	tree := namespace.NewTree("/sys/module/simple_sysfs_mod")
	pub := namespace.NewPublisher(tree, namespace.PublisherConfig{})
	_, err = pub.Publish("simple_sysfs", store)
	require.NoError(t, err)

	srv, err := transport.NewServer(transport.ServerConfig{Tree: tree, Version: ver, Changes: store})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, store
}

func connect(t *testing.T, baseURL string) *Target {
	t.Helper()
	target, err := Connect(context.Background(), TargetOptions{URL: baseURL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return target
}

type fakeFinder struct {
	svc *discovery.NamespaceService
	err error

	asked string
}

func (f *fakeFinder) FindByBaseName(_ context.Context, baseName string) (*discovery.NamespaceService, error) {
	f.asked = baseName
	return f.svc, f.err
}

type fakeBrowser struct {
	services []*discovery.NamespaceService
	err      error
}

func (b *fakeBrowser) Browse(ctx context.Context) (<-chan *discovery.NamespaceService, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make(chan *discovery.NamespaceService)
	go func() {
		defer close(out)
		for _, svc := range b.services {
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestConnectRequiresTarget(t *testing.T) {
	_, err := Connect(context.Background(), TargetOptions{}, nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = Connect(context.Background(), TargetOptions{BaseName: "simple_sysfs"}, nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = Connect(context.Background(), TargetOptions{URL: "ftp://host"}, nil)
	assert.Error(t, err)
}

func TestConnectByBaseName(t *testing.T) {
	baseURL, _ := startHost(t, "")
	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	finder := &fakeFinder{svc: &discovery.NamespaceService{
		InstanceName: "simple_sysfs-host",
		Host:         "host.local",
		Port:         uint16(port),
		Addresses:    []string{u.Hostname()},
		BaseName:     "simple_sysfs",
	}}

	target, err := Connect(context.Background(), TargetOptions{BaseName: "simple_sysfs"}, finder)
	require.NoError(t, err)
	assert.Equal(t, "simple_sysfs", finder.asked)
	assert.Same(t, finder.svc, target.Service)

	var out bytes.Buffer
	require.NoError(t, RunCat(context.Background(), target, "simple_sysfs/simple_sysfs_data_1", &out))
	assert.Equal(t, "Current Data: 0\n", out.String())
}

func TestConnectFinderError(t *testing.T) {
	finder := &fakeFinder{err: discovery.ErrNotFound}
	_, err := Connect(context.Background(), TargetOptions{BaseName: "missing"}, finder)
	assert.ErrorIs(t, err, discovery.ErrNotFound)
}

func TestRunHealth(t *testing.T) {
	baseURL, _ := startHost(t, "")
	var out bytes.Buffer
	require.NoError(t, RunHealth(context.Background(), connect(t, baseURL), &out))
	assert.Contains(t, out.String(), "Status:  ok")
	assert.Contains(t, out.String(), "Version: "+version.Current)
	assert.Contains(t, out.String(), "Root:    /sys/module/simple_sysfs_mod")
	assert.Contains(t, out.String(), "Nodes:   3")
}

func TestRunHealthIncompatibleVersion(t *testing.T) {
	baseURL, _ := startHost(t, "9.0")
	err := RunHealth(context.Background(), connect(t, baseURL), &bytes.Buffer{})
	assert.ErrorIs(t, err, version.ErrIncompatible)
}

func TestRunList(t *testing.T) {
	baseURL, _ := startHost(t, "")
	target := connect(t, baseURL)

	var out bytes.Buffer
	require.NoError(t, RunList(context.Background(), target, "", &out))
	assert.Contains(t, out.String(), "simple_sysfs/")

	out.Reset()
	require.NoError(t, RunList(context.Background(), target, "simple_sysfs", &out))
	assert.Equal(t,
		"-rw-rw-r--  simple_sysfs_data_1\n-rw-rw-r--  simple_sysfs_data_2\n",
		out.String())

	err := RunList(context.Background(), target, "simple_sysfs/simple_sysfs_data_1", &out)
	assert.ErrorIs(t, err, namespace.ErrNotDir)
}

func TestRunWriteShowsEffect(t *testing.T) {
	baseURL, store := startHost(t, "")
	target := connect(t, baseURL)

	var out bytes.Buffer
	require.NoError(t, RunWrite(context.Background(), target, "simple_sysfs/simple_sysfs_data_2", "250\n", &out))
	assert.Equal(t, "OK (4 bytes consumed)\nCurrent Data: 250\n", out.String())

	// Rejected silently: count still reported, value unchanged.
	out.Reset()
	require.NoError(t, RunWrite(context.Background(), target, "/sys/module/simple_sysfs_mod/simple_sysfs/simple_sysfs_data_2", "abc", &out))
	assert.Equal(t, "OK (3 bytes consumed)\nCurrent Data: 250\n", out.String())

	v, err := store.Value("simple_sysfs_data_2")
	require.NoError(t, err)
	assert.Equal(t, int64(250), v)
}

func TestRunCatErrors(t *testing.T) {
	baseURL, _ := startHost(t, "")
	target := connect(t, baseURL)

	err := RunCat(context.Background(), target, "simple_sysfs/nope", &bytes.Buffer{})
	assert.ErrorIs(t, err, namespace.ErrNotExist)

	err = RunCat(context.Background(), target, "simple_sysfs//x", &bytes.Buffer{})
	assert.Error(t, err)

	err = RunWrite(context.Background(), target, "", "1", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunDump(t *testing.T) {
	baseURL, store := startHost(t, "")
	_, err := store.Set("simple_sysfs_data_1", []byte("7"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, RunDump(context.Background(), connect(t, baseURL), "simple_sysfs", &out))
	assert.Equal(t,
		"simple_sysfs_data_1  Current Data: 7\nsimple_sysfs_data_2  Current Data: 0\n",
		out.String())

	out.Reset()
	require.NoError(t, RunDump(context.Background(), connect(t, baseURL), "", &out))
	assert.Equal(t, "(no readable entries)\n", out.String())
}

func TestRunDiscover(t *testing.T) {
	b := &fakeBrowser{services: []*discovery.NamespaceService{
		{
			InstanceName: "simple_sysfs-a",
			Port:         8377,
			Addresses:    []string{"192.0.2.10"},
			BaseName:     "simple_sysfs",
			Root:         "/sys/module/simple_sysfs_mod/simple_sysfs",
			Entries:      2,
			Version:      version.Current,
		},
		{
			InstanceName: "other-b",
			Host:         "b.local",
			Port:         9000,
			BaseName:     "other",
			Version:      "7.1",
		},
	}}

	var out bytes.Buffer
	n, err := RunDiscover(context.Background(), b, time.Second, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "INSTANCE"))
	assert.Contains(t, lines[1], "http://192.0.2.10:8377")
	assert.Contains(t, lines[2], "http://b.local:9000")
	assert.Contains(t, lines[2], "7.1 (incompatible)")
}

func TestRunDiscoverBrowseError(t *testing.T) {
	boom := errors.New("no multicast")
	_, err := RunDiscover(context.Background(), &fakeBrowser{err: boom}, time.Second, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

// lockedBuffer is a bytes.Buffer safe for one writer and one poller.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch(t *testing.T) {
	baseURL, store := startHost(t, "")
	target := connect(t, baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, target, []string{"simple_sysfs_data_1"}, &out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching simple_sysfs_data_1 on ")
	}, 2*time.Second, 10*time.Millisecond)

	_, err := store.Set("simple_sysfs_data_2", []byte("5"))
	require.NoError(t, err)
	_, err = store.Set("simple_sysfs_data_1", []byte("42"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "simple_sysfs_data_1 = 42")
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "simple_sysfs_data_2")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunWatch did not return after cancel")
	}
}
