package inspect

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Path
		wantErr error
	}{
		{
			name:  "relative entry",
			input: "simple_sysfs/simple_sysfs_data_1",
			want:  &Path{Segments: []string{"simple_sysfs", "simple_sysfs_data_1"}},
		},
		{
			name:  "directory only",
			input: "simple_sysfs",
			want:  &Path{Segments: []string{"simple_sysfs"}},
		},
		{
			name:  "absolute",
			input: "/sys/module/mod/ns/a",
			want:  &Path{Segments: []string{"sys", "module", "mod", "ns", "a"}, Absolute: true},
		},
		{
			name:  "absolute root",
			input: "/",
			want:  &Path{Absolute: true},
		},
		{
			name:  "trailing slash",
			input: "ns/",
			want:  &Path{Segments: []string{"ns"}},
		},
		{
			name:  "surrounding whitespace",
			input: "  ns/a \n",
			want:  &Path{Segments: []string{"ns", "a"}},
		},
		{name: "empty", input: "", wantErr: ErrEmptyPath},
		{name: "blank", input: "   ", wantErr: ErrEmptyPath},
		{name: "double slash", input: "ns//a", wantErr: ErrInvalidPath},
		{name: "dot dot", input: "ns/../a", wantErr: ErrInvalidPath},
		{name: "dot", input: "./ns", wantErr: ErrInvalidPath},
		{name: "only dots", input: "..", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePath(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got.Segments, tt.want.Segments) {
				t.Errorf("Segments = %v, want %v", got.Segments, tt.want.Segments)
			}
			if got.Absolute != tt.want.Absolute {
				t.Errorf("Absolute = %v, want %v", got.Absolute, tt.want.Absolute)
			}
		})
	}
}

func TestPathString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ns/a", "ns/a"},
		{"ns/a/", "ns/a"},
		{"/sys/module/x", "/sys/module/x"},
		{"/", "/"},
	}

	for _, tt := range tests {
		p, err := ParsePath(tt.input)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", tt.input, err)
		}
		if got := p.String(); got != tt.want {
			t.Errorf("ParsePath(%q).String() = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPathDirBaseJoin(t *testing.T) {
	p, err := ParsePath("/root/ns/a")
	if err != nil {
		t.Fatal(err)
	}
	if p.Base() != "a" {
		t.Errorf("Base() = %q, want a", p.Base())
	}
	if got := p.Dir().String(); got != "/root/ns" {
		t.Errorf("Dir() = %q, want /root/ns", got)
	}
	if got := p.Dir().Join("b").String(); got != "/root/ns/b" {
		t.Errorf("Join() = %q, want /root/ns/b", got)
	}
	// Join does not alias the receiver
	if p.String() != "/root/ns/a" {
		t.Errorf("receiver modified: %q", p.String())
	}

	root := &Path{}
	if root.Base() != "" || root.Dir().String() != "" {
		t.Error("empty path should have empty Base and Dir")
	}
}
