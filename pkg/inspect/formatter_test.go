package inspect

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/sysattr/sysattr-go/pkg/attr"
)

func TestFormatValue(t *testing.T) {
	f := &Formatter{}

	tests := []struct {
		value    int64
		unit     string
		expected string
	}{
		{42, "", "42"},
		{-5, "", "-5"},
		{230, "V", "230 V"},
	}

	for _, tt := range tests {
		if got := f.FormatValue(tt.value, tt.unit); got != tt.expected {
			t.Errorf("FormatValue(%d, %q) = %q, want %q", tt.value, tt.unit, got, tt.expected)
		}
	}
}

func TestFormatterIndent(t *testing.T) {
	f := &Formatter{}
	if got := f.Indent(2, "x"); got != "    x" {
		t.Errorf("Indent default width = %q", got)
	}
	f.IndentWidth = 3
	if got := f.Indent(1, "x"); got != "   x" {
		t.Errorf("Indent width 3 = %q", got)
	}
}

func TestFormatEntry(t *testing.T) {
	v := int64(12)
	def := attr.Definition{Name: "a", Min: -1, Max: 99}

	tests := []struct {
		name string
		f    *Formatter
		node NodeInfo
		want string
	}{
		{
			name: "store backed",
			f:    NewFormatter(),
			node: NodeInfo{Name: "a", Value: &v, Definition: &def},
			want: "a = 12 [-1..99]",
		},
		{
			name: "without metadata",
			f:    &Formatter{},
			node: NodeInfo{Name: "a", Value: &v, Definition: &def},
			want: "a = 12",
		},
		{
			name: "text only",
			f:    NewFormatter(),
			node: NodeInfo{Name: "b", Text: "Current Data: 3\n"},
			want: `b = "Current Data: 3\n"`,
		},
		{
			name: "unreadable with mode",
			f:    &Formatter{ShowModes: true},
			node: NodeInfo{Name: "c", Mode: 0o200},
			want: "--w------- c = (unreadable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.FormatEntry(&tt.node); got != tt.want {
				t.Errorf("FormatEntry = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatMode(t *testing.T) {
	if got := FormatMode(0o664); got != "-rw-rw-r--" {
		t.Errorf("FormatMode(0664) = %q", got)
	}
	if got := FormatMode(fs.ModeDir | 0o755); got != "drwxr-xr-x" {
		t.Errorf("FormatMode(dir) = %q", got)
	}
}

func TestFormatValueTable(t *testing.T) {
	f := NewFormatter()

	if got := f.FormatValueTable(nil); got != "  (no attributes)" {
		t.Errorf("empty table = %q", got)
	}

	out := f.FormatValueTable([]ValueRow{
		{Name: "a", Value: "1", Range: FormatRange(0, 10)},
		{Name: "longer", Value: "2", Unit: "W"},
	})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "  a       1  [0..10]" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "  longer  2 W" {
		t.Errorf("line 1 = %q", lines[1])
	}
}
