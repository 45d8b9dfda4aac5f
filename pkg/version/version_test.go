package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1",
		"abc",
		"1.0.0",
		"1.x",
		"-1.0",
		".1",
		"1.",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestVersion_String(t *testing.T) {
	v, err := Parse("10.23")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "10.23" {
		t.Errorf("String() = %q, want %q", v.String(), "10.23")
	}
}

func TestCurrentParses(t *testing.T) {
	if got := MustParse(Current).String(); got != Current {
		t.Errorf("MustParse(Current) = %q, want %q", got, Current)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid input")
		}
	}()
	MustParse("one")
}

func TestCompatible(t *testing.T) {
	v1 := Version{Major: 1, Minor: 0}
	if !v1.Compatible(Version{Major: 1, Minor: 7}) {
		t.Error("same major should be compatible")
	}
	if v1.Compatible(Version{Major: 2, Minor: 0}) {
		t.Error("different major should not be compatible")
	}
}

func TestCheck(t *testing.T) {
	if err := Check(""); err != nil {
		t.Errorf("Check(\"\") = %v, want nil", err)
	}
	if err := Check("1.9"); err != nil {
		t.Errorf("Check(1.9) = %v, want nil", err)
	}
	if err := Check("2.0"); !errors.Is(err, ErrIncompatible) {
		t.Errorf("Check(2.0) = %v, want ErrIncompatible", err)
	}
	if err := Check("v1"); err == nil || errors.Is(err, ErrIncompatible) {
		t.Errorf("Check(v1) = %v, want parse error", err)
	}
}
