package inspect

import "testing"

func TestResolveName(t *testing.T) {
	names := []string{"simple_sysfs_data_1", "Simple_Sysfs_Data_1", "other"}

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"simple_sysfs_data_1", "simple_sysfs_data_1", true},
		{"Simple_Sysfs_Data_1", "Simple_Sysfs_Data_1", true},
		{"SIMPLE_SYSFS_DATA_1", "simple_sysfs_data_1", true},
		{"OTHER", "other", true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		got, ok := ResolveName(names, tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ResolveName(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"simple_sysfs", "simple_sysfs_data_1", "data_1"},
		{"simple_sysfs", "data_1", "data_1"},
		{"simple_sysfs", "simple_sysfs_", "simple_sysfs_"},
		{"", "x_y", "x_y"},
	}

	for _, tt := range tests {
		if got := ShortName(tt.base, tt.name); got != tt.want {
			t.Errorf("ShortName(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}
