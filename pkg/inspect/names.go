package inspect

import "strings"

// ResolveName returns the entry of names matching name case-insensitively.
// An exact match wins over a case-folded one.
func ResolveName(names []string, name string) (string, bool) {
	for _, n := range names {
		if n == name {
			return n, true
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// ShortName strips the common prefix the module puts in front of its
// attribute names, so "simple_sysfs_data_1" in "simple_sysfs" becomes
// "data_1". Names without that prefix are returned unchanged.
func ShortName(baseName, name string) string {
	prefix := baseName + "_"
	if baseName != "" && strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
		return name[len(prefix):]
	}
	return name
}
