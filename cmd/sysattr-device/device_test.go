package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysattr/sysattr-go/pkg/config"
	"github.com/sysattr/sysattr-go/pkg/log"
	"github.com/sysattr/sysattr-go/pkg/namespace"
	"github.com/sysattr/sysattr-go/pkg/transport"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HTTP.Address = "127.0.0.1:0"
	return cfg
}

func TestDeviceServesDefaultNamespace(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.ProtocolLog = filepath.Join(t.TempDir(), "device.alog")

	var logs bytes.Buffer
	dev, err := newDevice(cfg, newLogger(cfg.Log, &logs))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, dev.start(ctx))

	assert.Equal(t, namespace.StatePublished, dev.publisher.State())
	assert.Contains(t, logs.String(), "namespace published")

	client, err := transport.NewClient(transport.ClientConfig{
		BaseURL: "http://" + dev.server.Addr().String(),
	})
	require.NoError(t, err)

	n, err := client.Write(ctx, "simple_sysfs/simple_sysfs_data_1", []byte("42"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text, err := client.Read(ctx, "/sys/module/simple_sysfs_mod/simple_sysfs/simple_sysfs_data_1")
	require.NoError(t, err)
	assert.Equal(t, "Current Data: 42\n", text)

	status := strings.Join(dev.status(), "\n")
	assert.Contains(t, status, "HTTP:      127.0.0.1:")
	assert.Contains(t, status, "mDNS:      disabled")
	assert.Contains(t, status, "Trace:     ")

	info := dev.namespaceInfo()
	assert.Equal(t, "/sys/module/simple_sysfs_mod/simple_sysfs", info.Root)
	assert.Equal(t, 2, info.Entries)
	assert.Equal(t, dev.handle.ID(), info.SessionID)
	assert.NotZero(t, info.Port)

	require.NoError(t, dev.stop())
	assert.Equal(t, namespace.StateUnpublished, dev.publisher.State())
	assert.Zero(t, dev.tree.Len())

	// Stopping twice is harmless.
	require.NoError(t, dev.stop())

	reader, err := log.NewReader(cfg.Log.ProtocolLog)
	require.NoError(t, err)
	defer reader.Close()
	events, err := reader.ReadAll()
	require.NoError(t, err)

	var actions []log.Action
	var sawTransportWrite bool
	for _, e := range events {
		if e.Lifecycle != nil {
			actions = append(actions, e.Lifecycle.Action)
		}
		if e.Source == log.SourceTransport && e.Access != nil && e.Access.Op == log.OpWrite {
			sawTransportWrite = true
			assert.NotEmpty(t, e.RequestID)
		}
	}
	assert.Equal(t, []log.Action{log.ActionPublish, log.ActionTeardown}, actions)
	assert.True(t, sawTransportWrite)
}

func TestDeviceWithoutHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Enabled = false

	dev, err := newDevice(cfg, newLogger(cfg.Log, io.Discard))
	require.NoError(t, err)
	require.NoError(t, dev.start(context.Background()))

	assert.Nil(t, dev.server)
	assert.Contains(t, dev.status(), "HTTP:      disabled")

	text, err := dev.tree.Read("simple_sysfs/simple_sysfs_data_2")
	require.NoError(t, err)
	assert.Equal(t, "Current Data: 0\n", text)

	require.NoError(t, dev.stop())
}

func TestDeviceStartFailureRollsBack(t *testing.T) {
	blocker := testConfig(t)
	first, err := newDevice(blocker, newLogger(blocker.Log, io.Discard))
	require.NoError(t, err)
	require.NoError(t, first.start(context.Background()))
	defer first.stop()

	// Same address: publish succeeds, listen fails.
	cfg := testConfig(t)
	cfg.HTTP.Address = first.server.Addr().String()
	dev, err := newDevice(cfg, newLogger(cfg.Log, io.Discard))
	require.NoError(t, err)

	err = dev.start(context.Background())
	require.Error(t, err)
	assert.Equal(t, namespace.StateUnpublished, dev.publisher.State())
	assert.Zero(t, dev.tree.Len())
}

func TestDeviceNodeLimitFailsPublish(t *testing.T) {
	cfg := testConfig(t)
	cfg.NodeLimit = 2

	dev, err := newDevice(cfg, newLogger(cfg.Log, io.Discard))
	require.NoError(t, err)

	err = dev.start(context.Background())
	require.ErrorIs(t, err, namespace.ErrNoSpace)
	assert.Nil(t, dev.server)
	assert.Zero(t, dev.tree.Len())
}

func TestDeviceStopClosesHTTP(t *testing.T) {
	cfg := testConfig(t)
	dev, err := newDevice(cfg, newLogger(cfg.Log, io.Discard))
	require.NoError(t, err)
	require.NoError(t, dev.start(context.Background()))

	url := "http://" + dev.server.Addr().String() + "/healthz"
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, dev.stop())
	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	writeFile(t, path, `
parent: /sys/module/other_mod
base_name: other
http:
  enabled: true
  address: ":9000"
log:
  level: warn
`)

	*baseName = "flagged"
	*listen = "127.0.0.1:9100"
	t.Cleanup(func() {
		*baseName = config.DefaultBaseName
		*listen = config.DefaultAddress
	})

	cfg, err := loadConfig(path, map[string]bool{"base": true, "listen": true})
	require.NoError(t, err)
	assert.Equal(t, "/sys/module/other_mod", cfg.Parent)
	assert.Equal(t, "flagged", cfg.BaseName)
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.Address)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigDefaultsAndValidation(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultParent, cfg.Parent)
	assert.True(t, cfg.HTTP.Enabled)

	*noHTTP = true
	*mdns = true
	t.Cleanup(func() {
		*noHTTP = false
		*mdns = false
	})
	_, err = loadConfig("", map[string]bool{"no-http": true, "mdns": true})
	var le *config.LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "mdns requires http")
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf).Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf).Info("hidden")
	assert.Empty(t, buf.String())
}
