package attr

import (
	"fmt"
	"strconv"
)

// ShowFormat is the text layout returned by a read.
const ShowFormat = "Current Data: %d\n"

// FormatValue renders v the way a read presents it.
func FormatValue(v int64) string {
	return fmt.Sprintf(ShowFormat, v)
}

// ParseValue parses a write payload as a base-10 signed integer.
//
// The accepted form is an optional '+' or '-', at least one decimal digit and
// at most one trailing newline, which is what `echo 42 > entry` produces.
// Leading whitespace, embedded spaces, other trailing bytes and values that
// overflow int64 are all reported as ErrParse.
func ParseValue(data []byte) (int64, error) {
	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty input", ErrParse)
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, data)
	}
	return v, nil
}
