package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysattr/sysattr-go/pkg/inspect"
	"github.com/sysattr/sysattr-go/pkg/namespace"
)

var _ inspect.SessionReader = (*Client)(nil)

func newTestClient(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	_, ts, _ := newTestServer(t, nil)
	c, err := NewClient(ClientConfig{BaseURL: ts.URL})
	require.NoError(t, err)
	return c, ts
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "ftp://device"})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "http://[::1"})
	assert.Error(t, err)

	c, err := NewClient(ClientConfig{BaseURL: "http://device.local:8377"})
	require.NoError(t, err)
	assert.Equal(t, "http://device.local:8377", c.BaseURL())
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	n, err := c.Write(ctx, "simple_sysfs/simple_sysfs_data_1", []byte("42"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text, err := c.Read(ctx, "simple_sysfs/simple_sysfs_data_1")
	require.NoError(t, err)
	assert.Equal(t, "Current Data: 42\n", text)

	// Out-of-range is consumed, not an error
	n, err = c.Write(ctx, "/sys/module/simple_sysfs_mod/simple_sysfs/simple_sysfs_data_1", []byte("1001"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	text, err = c.Read(ctx, "/sys/module/simple_sysfs_mod/simple_sysfs/simple_sysfs_data_1")
	require.NoError(t, err)
	assert.Equal(t, "Current Data: 42\n", text)
}

func TestClientList(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	root, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "simple_sysfs", root[0].Name)

	infos, err := c.List(ctx, "simple_sysfs")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "simple_sysfs_data_2", infos[1].Name)

	_, err = c.List(ctx, "simple_sysfs/simple_sysfs_data_1")
	assert.ErrorIs(t, err, namespace.ErrNotDir)

	_, err = c.Read(ctx, "simple_sysfs")
	assert.ErrorIs(t, err, namespace.ErrIsDir)
}

func TestClientErrors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Read(ctx, "simple_sysfs/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, namespace.ErrNotExist)

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.NotEmpty(t, serr.RequestID)
	assert.Contains(t, serr.Error(), "404")

	_, err = c.Write(ctx, "simple_sysfs/simple_sysfs_data_1", make([]byte, 100))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestClientAgainstInspector(t *testing.T) {
	c, _ := newTestClient(t)
	r := inspect.NewRemoteInspector(c)
	ctx := context.Background()

	p, err := inspect.ParsePath("simple_sysfs/simple_sysfs_data_2")
	require.NoError(t, err)
	_, err = r.WriteAttribute(ctx, p, "9\n")
	require.NoError(t, err)

	dir, err := inspect.ParsePath("simple_sysfs")
	require.NoError(t, err)
	values, err := r.ReadAll(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"simple_sysfs_data_1": "Current Data: 0\n",
		"simple_sysfs_data_2": "Current Data: 9\n",
	}, values)
}

func TestClientTimeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)

	c, err := NewClient(ClientConfig{BaseURL: ts.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Read(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientRetriesReads(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Current Data: 3\n"))
	}))
	defer ts.Close()

	c, err := NewClient(ClientConfig{
		BaseURL:      ts.URL,
		Retries:      3,
		RetryBackoff: BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond},
	})
	require.NoError(t, err)

	text, err := c.Read(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Current Data: 3\n", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientRetryLimits(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := NewClient(ClientConfig{
		BaseURL:      ts.URL,
		Retries:      2,
		RetryBackoff: BackoffConfig{Initial: time.Millisecond},
	})
	require.NoError(t, err)

	_, err = c.Read(context.Background(), "x")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.Code)
	assert.Equal(t, int32(3), calls.Load())

	// Writes are never repeated
	calls.Store(0)
	_, err = c.Write(context.Background(), "x", []byte("1"))
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStatusErrorUnwrap(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, namespace.ErrNotExist},
		{http.StatusForbidden, namespace.ErrPermission},
		{http.StatusBadRequest, namespace.ErrInvalid},
		{http.StatusRequestEntityTooLarge, ErrBodyTooLarge},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, &StatusError{Code: tt.code}, tt.want)
	}
	assert.Nil(t, (&StatusError{Code: http.StatusInternalServerError}).Unwrap())
}
