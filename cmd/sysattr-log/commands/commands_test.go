package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sysattr/sysattr-go/pkg/log"
)

const testSession = "5f0c1d2e-aaaa-bbbb-cccc-000000000001"

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sampleEvents is a short publish, write, read, teardown trace.
func sampleEvents() []log.Event {
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return []log.Event{
		{
			Timestamp: base,
			SessionID: testSession,
			Source:    log.SourceNamespace,
			Category:  log.CategoryLifecycle,
			Lifecycle: &log.LifecycleEvent{
				Action:   log.ActionPublish,
				BaseName: "simple_sysfs_data",
				Path:     "/sys/module/simple_sysfs_mod/simple_sysfs_data",
				Entries:  2,
			},
		},
		{
			Timestamp: base.Add(time.Second),
			SessionID: testSession,
			Source:    log.SourceStore,
			Category:  log.CategoryAccess,
			Access: &log.AccessEvent{
				Op:        log.OpWrite,
				Attribute: "data_1",
				Input:     []byte("42\n"),
				Value:     42,
				Outcome:   log.OutcomeAccepted,
				Consumed:  3,
			},
		},
		{
			Timestamp: base.Add(2 * time.Second),
			SessionID: testSession,
			Source:    log.SourceStore,
			Category:  log.CategoryAccess,
			Access: &log.AccessEvent{
				Op:        log.OpWrite,
				Attribute: "data_1",
				Input:     []byte("1001"),
				Value:     42,
				Outcome:   log.OutcomeRejectedRange,
				Consumed:  4,
			},
		},
		{
			Timestamp:  base.Add(3 * time.Second),
			SessionID:  testSession,
			Source:     log.SourceTransport,
			Category:   log.CategoryAccess,
			RemoteAddr: "192.0.2.7:51234",
			RequestID:  "0d9e8f7a-1111-2222-3333-444444444444",
			Access: &log.AccessEvent{
				Op:        log.OpRead,
				Attribute: "data_2",
				Outcome:   log.OutcomeAccepted,
			},
		},
		{
			Timestamp: base.Add(4 * time.Second),
			Source:    log.SourceTransport,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Source:  log.SourceTransport,
				Message: "listener closed",
				Context: "serve",
			},
		},
		{
			Timestamp: base.Add(5 * time.Second),
			SessionID: testSession,
			Source:    log.SourceNamespace,
			Category:  log.CategoryLifecycle,
			Lifecycle: &log.LifecycleEvent{
				Action:   log.ActionTeardown,
				BaseName: "simple_sysfs_data",
				Entries:  2,
			},
		},
	}
}
