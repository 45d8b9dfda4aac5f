package attr

import "errors"

// Store errors.
var (
	// ErrNotFound is returned when a name does not match any attribute.
	ErrNotFound = errors.New("attribute not found")

	// ErrParse is reported when a write payload is not a base-10 integer.
	ErrParse = errors.New("invalid integer")

	// ErrOutOfRange is reported when a parsed value lies outside [Min, Max].
	ErrOutOfRange = errors.New("value out of range")

	// ErrDuplicateName is returned by NewStore when two definitions share a name.
	ErrDuplicateName = errors.New("duplicate attribute name")

	// ErrInvalidName is returned for names that cannot be used as entry names.
	ErrInvalidName = errors.New("invalid attribute name")

	// ErrInvalidBounds is returned when Min > Max or Initial lies outside them.
	ErrInvalidBounds = errors.New("invalid attribute bounds")
)
