package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type for namespace hosts.
	ServiceType = "_sysattr._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default HTTP port of a namespace host.
	DefaultPort = 8377
)

// TXT record key constants.
const (
	TXTKeyBaseName  = "base" // Directory name
	TXTKeyRoot      = "root" // Absolute path of the directory
	TXTKeyEntries   = "n"    // Entry count
	TXTKeyVersion   = "ver"  // Server version (optional)
	TXTKeySessionID = "sid"  // Publication session ID (optional)
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Errors.
var (
	ErrNotFound            = errors.New("service not found")
	ErrMissingRequired     = errors.New("missing required TXT field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrTXTTooLarge         = errors.New("TXT records too large")
	ErrNotAdvertising      = errors.New("not advertising")
)

// NamespaceInfo describes an advertised namespace.
type NamespaceInfo struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// BaseName is the directory name of the namespace.
	BaseName string

	// Root is the absolute path of the directory.
	Root string

	// Entries is the number of attribute entries.
	Entries int

	// Version is the server version (optional).
	Version string

	// SessionID identifies the publication (optional).
	SessionID string

	// Port is the HTTP port (default: DefaultPort).
	Port uint16
}

// NamespaceService is a namespace host found by browsing.
type NamespaceService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	BaseName  string
	Root      string
	Entries   int
	Version   string
	SessionID string
}

// URL returns an HTTP base URL for the service, preferring the first
// address and falling back to the host name.
func (s *NamespaceService) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// String returns a one-line summary.
func (s *NamespaceService) String() string {
	return fmt.Sprintf("%s %s (%d entries) at %s", s.InstanceName, s.Root, s.Entries, s.URL())
}
