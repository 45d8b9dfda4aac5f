package log

import (
	"time"
)

// Event represents an access log event captured at any source.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the publish session (UUID of the namespace handle).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Source where the event was captured.
	Source Source `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the peer address for network hosts (IP:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// RequestID correlates events belonging to one transport request.
	RequestID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Access    *AccessEvent    `cbor:"10,keyasint,omitempty"`
	Lifecycle *LifecycleEvent `cbor:"11,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"12,keyasint,omitempty"`
}

// Source indicates which component captured the event.
type Source uint8

const (
	// SourceStore is the attribute store (reads and writes).
	SourceStore Source = 0
	// SourceNamespace is the namespace publisher.
	SourceNamespace Source = 1
	// SourceTransport is a network host serving the namespace.
	SourceTransport Source = 2
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceStore:
		return "STORE"
	case SourceNamespace:
		return "NAMESPACE"
	case SourceTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAccess indicates an attribute read or write.
	CategoryAccess Category = 0
	// CategoryLifecycle indicates a namespace lifecycle change.
	CategoryLifecycle Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAccess:
		return "ACCESS"
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// AccessEvent captures one read or write of an attribute.
type AccessEvent struct {
	// Op is the operation performed.
	Op Op `cbor:"1,keyasint"`

	// Attribute is the attribute name.
	Attribute string `cbor:"2,keyasint"`

	// Input is the raw write payload (write only, may be truncated).
	Input []byte `cbor:"3,keyasint,omitempty"`

	// Value is the attribute value after the operation.
	Value int64 `cbor:"4,keyasint"`

	// Outcome tells whether a write was applied.
	Outcome Outcome `cbor:"5,keyasint"`

	// Consumed is the byte count reported back to the writer.
	Consumed int `cbor:"6,keyasint,omitempty"`
}

// MaxInputCapture is the maximum number of write bytes copied into an AccessEvent.
const MaxInputCapture = 64

// CaptureInput returns a copy of data suitable for AccessEvent.Input.
func CaptureInput(data []byte) []byte {
	if len(data) > MaxInputCapture {
		data = data[:MaxInputCapture]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// Op is an attribute operation.
type Op uint8

const (
	// OpRead is a read (show).
	OpRead Op = 0
	// OpWrite is a write (store).
	OpWrite Op = 1
	// OpWatch opens a change stream. Attribute holds the watched names.
	OpWatch Op = 2
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpWatch:
		return "WATCH"
	default:
		return "UNKNOWN"
	}
}

// Outcome describes how an access was resolved.
type Outcome uint8

const (
	// OutcomeAccepted means the read succeeded or the write was applied.
	OutcomeAccepted Outcome = 0
	// OutcomeRejectedParse means the write input was not a base-10 integer.
	OutcomeRejectedParse Outcome = 1
	// OutcomeRejectedRange means the written integer was outside the bounds.
	OutcomeRejectedRange Outcome = 2
	// OutcomeNotFound means the attribute name was not registered.
	OutcomeNotFound Outcome = 3
	// OutcomeDenied means the entry mode did not permit the operation.
	OutcomeDenied Outcome = 4
	// OutcomeConsumed means a remote write was handed to the store. Whether
	// the value was applied is recorded by the store's own event.
	OutcomeConsumed Outcome = 5
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "ACCEPTED"
	case OutcomeRejectedParse:
		return "REJECTED_PARSE"
	case OutcomeRejectedRange:
		return "REJECTED_RANGE"
	case OutcomeNotFound:
		return "NOT_FOUND"
	case OutcomeDenied:
		return "DENIED"
	case OutcomeConsumed:
		return "CONSUMED"
	default:
		return "UNKNOWN"
	}
}

// Rejected reports whether the outcome left the attribute unchanged.
func (o Outcome) Rejected() bool {
	return o != OutcomeAccepted && o != OutcomeConsumed
}

// LifecycleEvent captures publish, teardown and rollback of a namespace.
type LifecycleEvent struct {
	// Action is the lifecycle transition.
	Action Action `cbor:"1,keyasint"`

	// BaseName is the directory name under the parent scope.
	BaseName string `cbor:"2,keyasint"`

	// Path is the absolute directory path (if known).
	Path string `cbor:"3,keyasint,omitempty"`

	// Entries is the number of child entries involved.
	Entries int `cbor:"4,keyasint,omitempty"`

	// Reason for the transition (rollback only).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// Action indicates a namespace lifecycle transition.
type Action uint8

const (
	// ActionPublish indicates a successful publish.
	ActionPublish Action = 0
	// ActionTeardown indicates a teardown.
	ActionTeardown Action = 1
	// ActionRollback indicates a failed publish that was rolled back.
	ActionRollback Action = 2
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionPublish:
		return "PUBLISH"
	case ActionTeardown:
		return "TEARDOWN"
	case ActionRollback:
		return "ROLLBACK"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any source.
type ErrorEventData struct {
	// Source where the error occurred.
	Source Source `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
