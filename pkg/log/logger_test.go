package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-1",
		Source:    SourceStore,
		Category:  CategoryAccess,
	}
	logger.Log(event)

	event.Access = &AccessEvent{Op: OpWrite, Attribute: "data_1", Input: []byte("42")}
	logger.Log(event)

	event.Access = nil
	event.Lifecycle = &LifecycleEvent{Action: ActionPublish, BaseName: "simple_sysfs"}
	logger.Log(event)

	event.Lifecycle = nil
	event.Error = &ErrorEventData{Source: SourceNamespace, Message: "boom"}
	logger.Log(event)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}

	mock := &mockLogger{}
	if OrNoop(mock) != Logger(mock) {
		t.Error("OrNoop should return a non-nil logger unchanged")
	}
}

func TestCaptureInputTruncates(t *testing.T) {
	long := make([]byte, MaxInputCapture+10)
	for i := range long {
		long[i] = '7'
	}

	got := CaptureInput(long)
	if len(got) != MaxInputCapture {
		t.Errorf("len = %d, want %d", len(got), MaxInputCapture)
	}

	// Must be a copy
	src := []byte("42")
	cp := CaptureInput(src)
	src[0] = 'x'
	if string(cp) != "42" {
		t.Errorf("CaptureInput aliased its input: %q", cp)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{SourceStore.String(), "STORE"},
		{SourceNamespace.String(), "NAMESPACE"},
		{SourceTransport.String(), "TRANSPORT"},
		{Source(99).String(), "UNKNOWN"},
		{CategoryAccess.String(), "ACCESS"},
		{CategoryLifecycle.String(), "LIFECYCLE"},
		{CategoryError.String(), "ERROR"},
		{OpRead.String(), "READ"},
		{OpWrite.String(), "WRITE"},
		{OutcomeAccepted.String(), "ACCEPTED"},
		{OutcomeRejectedParse.String(), "REJECTED_PARSE"},
		{OutcomeRejectedRange.String(), "REJECTED_RANGE"},
		{OutcomeNotFound.String(), "NOT_FOUND"},
		{OutcomeDenied.String(), "DENIED"},
		{OutcomeConsumed.String(), "CONSUMED"},
		{ActionPublish.String(), "PUBLISH"},
		{ActionTeardown.String(), "TEARDOWN"},
		{ActionRollback.String(), "ROLLBACK"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestOutcomeRejected(t *testing.T) {
	if OutcomeAccepted.Rejected() {
		t.Error("accepted must not be rejected")
	}
	if OutcomeConsumed.Rejected() {
		t.Error("consumed must not be rejected")
	}
	for _, o := range []Outcome{OutcomeRejectedParse, OutcomeRejectedRange, OutcomeNotFound, OutcomeDenied} {
		if !o.Rejected() {
			t.Errorf("%s should be rejected", o)
		}
	}
}
