package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/config"
	"github.com/sysattr/sysattr-go/pkg/discovery"
	"github.com/sysattr/sysattr-go/pkg/log"
	"github.com/sysattr/sysattr-go/pkg/namespace"
	"github.com/sysattr/sysattr-go/pkg/transport"
	"github.com/sysattr/sysattr-go/pkg/version"
)

// device owns the components of one running namespace host. They are
// started in order (publish, serve, advertise) and stopped in reverse.
type device struct {
	cfg    *config.Config
	logger *slog.Logger
	events log.Logger
	trace  *log.FileLogger

	store      *attr.Store
	tree       *namespace.Tree
	publisher  *namespace.Publisher
	handle     *namespace.Handle
	server     *transport.Server
	advertiser *discovery.MDNSAdvertiser
}

func newDevice(cfg *config.Config, logger *slog.Logger) (*device, error) {
	d := &device{cfg: cfg, logger: logger}

	sinks := []log.Logger{log.NewSlogAdapter(logger)}
	if cfg.Log.ProtocolLog != "" {
		trace, err := log.NewFileLogger(cfg.Log.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open protocol log: %w", err)
		}
		d.trace = trace
		sinks = append(sinks, trace)
	}
	d.events = log.NewMultiLogger(sinks...)

	store, err := attr.NewStore(cfg.Attributes, attr.WithLogger(d.events))
	if err != nil {
		d.closeTrace()
		return nil, fmt.Errorf("failed to build attribute store: %w", err)
	}
	d.store = store

	d.tree = namespace.NewTree(cfg.Parent, namespace.WithNodeLimit(cfg.NodeLimit))
	d.publisher = namespace.NewPublisher(d.tree, namespace.PublisherConfig{
		Logger: d.events,
	})
	return d, nil
}

// start publishes the namespace, then serves and advertises it as
// configured. On failure everything started so far is stopped again.
func (d *device) start(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if serr := d.stop(); serr != nil {
				err = errors.Join(err, serr)
			}
		}
	}()

	h, err := d.publisher.Publish(d.cfg.BaseName, d.store)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", d.cfg.Root(), err)
	}
	d.handle = h
	d.logger.Info("namespace published",
		"path", h.Path(),
		"entries", len(h.Entries()),
		"session_id", h.ID())

	if !d.cfg.HTTP.Enabled {
		return nil
	}

	d.server, err = transport.NewServer(transport.ServerConfig{
		Tree:        d.tree,
		Address:     d.cfg.HTTP.Address,
		MaxBodySize: d.cfg.HTTP.MaxBodySize,
		Version:     version.Current,
		Logger:      d.events,
		Changes:     d.store,
	})
	if err != nil {
		return err
	}
	if err := d.server.Start(ctx); err != nil {
		d.server = nil
		return err
	}
	d.logger.Info("HTTP host listening", "addr", d.server.Addr().String())

	if !d.cfg.MDNS.Enabled {
		return nil
	}
	return d.advertise(ctx)
}

func (d *device) advertise(ctx context.Context) error {
	adCfg := discovery.DefaultAdvertiserConfig()
	adCfg.Interface = d.cfg.MDNS.Interface
	if d.cfg.MDNS.TTL > 0 {
		adCfg.TTL = d.cfg.MDNS.TTL
	}
	advertiser, err := discovery.NewMDNSAdvertiser(adCfg)
	if err != nil {
		return err
	}

	info := d.namespaceInfo()
	if err := advertiser.Advertise(ctx, info); err != nil {
		return fmt.Errorf("failed to advertise: %w", err)
	}
	d.advertiser = advertiser
	d.logger.Info("advertising via mDNS",
		"instance", info.InstanceName,
		"service", discovery.ServiceType,
		"port", info.Port)
	return nil
}

// namespaceInfo describes the current publication for mDNS.
func (d *device) namespaceInfo() *discovery.NamespaceInfo {
	instance := d.cfg.MDNS.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = discovery.InstanceName(d.cfg.BaseName, host)
	}

	info := &discovery.NamespaceInfo{
		InstanceName: instance,
		BaseName:     d.cfg.BaseName,
		Root:         d.cfg.Root(),
		Entries:      d.store.Len(),
		Version:      version.Current,
	}
	if d.handle != nil {
		info.SessionID = d.handle.ID()
	}
	if d.server != nil {
		if addr, ok := d.server.Addr().(*net.TCPAddr); ok {
			info.Port = uint16(addr.Port)
		}
	}
	return info
}

// status returns serving details for the interactive shell.
func (d *device) status() []string {
	var lines []string
	if d.server != nil {
		lines = append(lines, fmt.Sprintf("HTTP:      %s", d.server.Addr()))
	} else {
		lines = append(lines, "HTTP:      disabled")
	}
	if d.advertiser != nil {
		if info := d.advertiser.Info(); info != nil {
			lines = append(lines, fmt.Sprintf("mDNS:      %s.%s.%s", info.InstanceName, discovery.ServiceType, discovery.Domain))
		}
	} else {
		lines = append(lines, "mDNS:      disabled")
	}
	if d.trace != nil {
		written, dropped := d.trace.Stats()
		lines = append(lines, fmt.Sprintf("Trace:     %s (%d events, %d dropped)", d.cfg.Log.ProtocolLog, written, dropped))
	}
	return lines
}

// stop tears everything down in reverse start order. It is safe to call
// more than once.
func (d *device) stop() error {
	var errs []error

	if d.advertiser != nil {
		d.advertiser.Stop()
		d.advertiser = nil
	}
	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop HTTP host: %w", err))
		}
		d.server = nil
	}
	if d.handle != nil {
		if err := d.publisher.Teardown(d.handle); err != nil {
			errs = append(errs, fmt.Errorf("teardown: %w", err))
		} else {
			d.logger.Info("namespace removed", "path", d.handle.Path())
		}
		d.handle = nil
	}
	if err := d.closeTrace(); err != nil {
		errs = append(errs, fmt.Errorf("close protocol log: %w", err))
	}
	return errors.Join(errs...)
}

func (d *device) closeTrace() error {
	if d.trace == nil {
		return nil
	}
	err := d.trace.Close()
	d.trace = nil
	return err
}
