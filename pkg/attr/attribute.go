package attr

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sysattr/sysattr-go/pkg/log"
)

// Definition describes an attribute's name, bounds and starting value.
type Definition struct {
	// Name is the entry name the attribute is published under.
	Name string `yaml:"name" toml:"name"`

	// Min is the smallest accepted value.
	Min int64 `yaml:"min" toml:"min"`

	// Max is the largest accepted value.
	Max int64 `yaml:"max" toml:"max"`

	// Initial is the value before the first write.
	Initial int64 `yaml:"initial,omitempty" toml:"initial,omitempty"`

	// Unit is an optional unit of measurement shown by inspection tools.
	Unit string `yaml:"unit,omitempty" toml:"unit,omitempty"`

	// Description is a human-readable description.
	Description string `yaml:"description,omitempty" toml:"description,omitempty"`
}

// Validate checks the name and that Min <= Initial <= Max.
func (d Definition) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.Min > d.Max {
		return fmt.Errorf("%w: %s: min %d > max %d", ErrInvalidBounds, d.Name, d.Min, d.Max)
	}
	if d.Initial < d.Min || d.Initial > d.Max {
		return fmt.Errorf("%w: %s: initial %d not in [%d, %d]", ErrInvalidBounds, d.Name, d.Initial, d.Min, d.Max)
	}
	return nil
}

// Contains reports whether v lies within [Min, Max].
func (d Definition) Contains(v int64) bool {
	return v >= d.Min && v <= d.Max
}

// ValidateName reports whether name can be used as an entry name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrInvalidName, name)
	}
	return nil
}

// Attribute is a named, bounded integer held by a Store.
// The value slot is guarded so a write is observed atomically by reads.
type Attribute struct {
	mu    sync.RWMutex
	def   Definition
	value int64
	owner *Store

	// notifyMu orders change notifications the same way as the stores
	// they report. It is taken before mu.
	notifyMu sync.Mutex
}

func newAttribute(def Definition, owner *Store) *Attribute {
	return &Attribute{
		def:   def,
		value: def.Initial,
		owner: owner,
	}
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.def.Name
}

// Definition returns the attribute definition.
func (a *Attribute) Definition() Definition {
	return a.def
}

// Value returns the current value.
func (a *Attribute) Value() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Show formats the current value as "Current Data: <value>\n".
func (a *Attribute) Show() (string, error) {
	v := a.Value()
	a.owner.logAccess(log.AccessEvent{
		Op:        log.OpRead,
		Attribute: a.def.Name,
		Value:     v,
		Outcome:   log.OutcomeAccepted,
	})
	return FormatValue(v), nil
}

// Store applies a write payload and always reports len(data) as consumed.
// Parse and range failures leave the value unchanged and are only logged.
func (a *Attribute) Store(data []byte) (int, error) {
	_ = a.write(data)
	return len(data), nil
}

// Write applies a write payload like Store but returns ErrParse or
// ErrOutOfRange when the value is rejected.
func (a *Attribute) Write(data []byte) error {
	return a.write(data)
}

// SetValue replaces the value if v lies within the bounds.
func (a *Attribute) SetValue(v int64) error {
	if !a.def.Contains(v) {
		return fmt.Errorf("%w: %s: %d not in [%d, %d]", ErrOutOfRange, a.def.Name, v, a.def.Min, a.def.Max)
	}

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	changed := a.value != v
	a.value = v
	a.mu.Unlock()

	if changed {
		a.owner.notifyChanged(a.def.Name, v)
	}
	return nil
}

func (a *Attribute) write(data []byte) error {
	event := log.AccessEvent{
		Op:        log.OpWrite,
		Attribute: a.def.Name,
		Input:     log.CaptureInput(data),
		Consumed:  len(data),
	}

	v, err := ParseValue(data)
	if err == nil {
		err = a.SetValue(v)
	}

	switch {
	case err == nil:
		event.Outcome = log.OutcomeAccepted
	case errors.Is(err, ErrParse):
		event.Outcome = log.OutcomeRejectedParse
	default:
		event.Outcome = log.OutcomeRejectedRange
	}
	event.Value = a.Value()
	a.owner.logAccess(event)

	return err
}

// NamedValue pairs an attribute name with a value read at one instant.
type NamedValue struct {
	Name  string
	Value int64
}

// Subscriber is notified when an accepted write changes a value.
type Subscriber interface {
	// OnAttributeChanged is called after the new value is visible to
	// readers. Calls for one attribute arrive in the order the values were
	// stored. It must not write the attribute it is told about.
	OnAttributeChanged(name string, value int64)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(name string, value int64)

// OnAttributeChanged calls f(name, value).
func (f SubscriberFunc) OnAttributeChanged(name string, value int64) {
	f(name, value)
}

// now is replaced in tests.
var now = time.Now
