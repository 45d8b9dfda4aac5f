package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeNamespaceTXT creates TXT records for a namespace host.
func EncodeNamespaceTXT(info *NamespaceInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyBaseName] = info.BaseName
	txt[TXTKeyRoot] = info.Root
	txt[TXTKeyEntries] = strconv.Itoa(info.Entries)

	// Optional fields
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.SessionID != "" {
		txt[TXTKeySessionID] = info.SessionID
	}

	return txt
}

// DecodeNamespaceTXT parses TXT records of a namespace host.
func DecodeNamespaceTXT(txt TXTRecordMap) (*NamespaceInfo, error) {
	info := &NamespaceInfo{}

	var ok bool
	info.BaseName, ok = txt[TXTKeyBaseName]
	if !ok || info.BaseName == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyBaseName)
	}

	info.Root, ok = txt[TXTKeyRoot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyRoot)
	}
	if !strings.HasPrefix(info.Root, "/") {
		return nil, fmt.Errorf("%w: root %q is not absolute", ErrInvalidTXTRecord, info.Root)
	}

	nStr, ok := txt[TXTKeyEntries]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyEntries)
	}
	n, err := strconv.Atoi(nStr)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: invalid entry count %q", ErrInvalidTXTRecord, nStr)
	}
	info.Entries = n

	// Optional fields
	info.Version = txt[TXTKeyVersion]
	info.SessionID = txt[TXTKeySessionID]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, sorted by key.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateTXTRecords checks the encoded size of txt.
// Each string costs its length plus one length byte.
func ValidateTXTRecords(txt TXTRecordMap) error {
	size := 0
	for _, s := range TXTRecordsToStrings(txt) {
		if len(s) > 255 {
			return fmt.Errorf("%w: %q exceeds 255 bytes", ErrTXTTooLarge, s[:strings.IndexByte(s, '=')])
		}
		size += len(s) + 1
	}
	if size > MaxTXTRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrTXTTooLarge, size)
	}
	return nil
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// InstanceName builds "<base>-<host>" truncated to the DNS label limit.
func InstanceName(baseName, host string) string {
	name := baseName
	if host != "" {
		name = baseName + "-" + host
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
