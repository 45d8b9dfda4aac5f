package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures an MDNSAdvertiser.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       DefaultTTL,
	}
}

// registration is the part of *zeroconf.Server the advertiser uses.
type registration interface {
	SetText(txt []string)
	Shutdown()
}

// registerFunc registers a service instance.
type registerFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error) {
	server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// MDNSAdvertiser advertises one namespace host using zeroconf.
type MDNSAdvertiser struct {
	config   AdvertiserConfig
	register registerFunc

	mu     sync.Mutex
	server registration
	info   *NamespaceInfo
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config:   config,
		register: zeroconfRegister,
	}, nil
}

// selectInterfaces resolves an interface name. Nil means all interfaces,
// which is also the fallback for unknown names.
func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising info, replacing any earlier advertisement.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *NamespaceInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateInstanceName(info.InstanceName); err != nil {
		return err
	}
	txtRecords := EncodeNamespaceTXT(info)
	if err := ValidateTXTRecords(txtRecords); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.shutdownLocked()

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}
	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := a.register(
		info.InstanceName,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(txtRecords),
		selectInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", info.InstanceName, err)
	}

	copied := *info
	a.server = server
	a.info = &copied
	return nil
}

// Update replaces the TXT records of the current advertisement.
func (a *MDNSAdvertiser) Update(info *NamespaceInfo) error {
	txtRecords := EncodeNamespaceTXT(info)
	if err := ValidateTXTRecords(txtRecords); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(txtRecords))

	copied := *info
	copied.InstanceName = a.info.InstanceName
	copied.Port = a.info.Port
	a.info = &copied
	return nil
}

// Info returns the current advertisement, or nil.
func (a *MDNSAdvertiser) Info() *NamespaceInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.info == nil {
		return nil
	}
	copied := *a.info
	return &copied
}

// Stop stops advertising. It is safe to call when not advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
}

func (a *MDNSAdvertiser) shutdownLocked() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.info = nil
	}
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for browse operations.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// browseFunc runs a DNS-SD browse until ctx is done.
type browseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// MDNSBrowser finds namespace hosts using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	browse browseFunc

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{
		config: config,
		browse: zeroconfBrowse,
	}, nil
}

// Browse searches for namespace hosts.
// Services are aggregated by instance name and each is emitted once, when
// first seen. The channel is closed when ctx is done or Stop is called.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *NamespaceService, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, fmt.Errorf("browser stopped")
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *NamespaceService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		set := make(serviceSet)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, added := set.add(entry)
				if !added {
					continue
				}
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				set.remove(entry)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = b.browse(ctx, ServiceType, Domain, entries, removed, b.clientOptions()...)
	}()

	return out, nil
}

// FindByBaseName returns the first host serving baseName. It gives up after
// BrowseTimeout unless ctx ends sooner.
func (b *MDNSBrowser) FindByBaseName(ctx context.Context, baseName string) (*NamespaceService, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if svc.BaseName == baseName {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrNotFound, baseName)
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *MDNSBrowser) clientOptions() []zeroconf.ClientOption {
	ifaces := selectInterfaces(b.config.Interface)
	if ifaces == nil {
		return nil
	}
	return []zeroconf.ClientOption{zeroconf.SelectIfaces(ifaces)}
}

// serviceSet tracks browse results by instance name. One host answering on
// several interfaces shows up as one service with all its addresses.
type serviceSet map[string]*NamespaceService

// add records entry and returns a copy of the service when the instance is
// new. Entries with unusable TXT records are ignored.
func (s serviceSet) add(entry *zeroconf.ServiceEntry) (*NamespaceService, bool) {
	svc := entryToService(entry)
	if svc == nil {
		return nil, false
	}
	if known, ok := s[svc.InstanceName]; ok {
		known.Addresses = mergeAddresses(known.Addresses, svc.Addresses)
		return nil, false
	}
	s[svc.InstanceName] = svc
	emitted := *svc
	emitted.Addresses = slices.Clone(svc.Addresses)
	return &emitted, true
}

// remove drops the addresses of entry and forgets the instance once none
// are left.
func (s serviceSet) remove(entry *zeroconf.ServiceEntry) {
	known, ok := s[entry.Instance]
	if !ok {
		return
	}
	known.Addresses = removeAddresses(known.Addresses, entry)
	if len(known.Addresses) == 0 {
		delete(s, entry.Instance)
	}
}

// entryToService converts a zeroconf entry, or returns nil when its TXT
// records do not describe a namespace.
func entryToService(entry *zeroconf.ServiceEntry) *NamespaceService {
	info, err := DecodeNamespaceTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}
	return &NamespaceService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddrs(entry),
		BaseName:     info.BaseName,
		Root:         info.Root,
		Entries:      info.Entries,
		Version:      info.Version,
		SessionID:    info.SessionID,
	}
}

// entryAddrs lists IPv4 addresses before IPv6 ones.
func entryAddrs(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func mergeAddresses(known, found []string) []string {
	for _, addr := range found {
		if !slices.Contains(known, addr) {
			known = append(known, addr)
		}
	}
	return known
}

func removeAddresses(known []string, entry *zeroconf.ServiceEntry) []string {
	gone := entryAddrs(entry)
	return slices.DeleteFunc(slices.Clone(known), func(addr string) bool {
		return slices.Contains(gone, addr)
	})
}
