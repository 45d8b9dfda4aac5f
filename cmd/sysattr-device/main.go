// Command sysattr-device publishes a directory of integer attributes and
// serves it until interrupted.
//
// The namespace is kept in memory and exposed over HTTP; it can optionally be
// advertised via mDNS and inspected from an interactive shell.
//
// Usage:
//
//	sysattr-device [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-parent string        Parent scope path (default "/sys/module/simple_sysfs_mod")
//	-base string          Directory name (default "simple_sysfs")
//	-listen string        HTTP listen address (default ":8377")
//	-no-http              Do not serve the namespace over HTTP
//	-mdns                 Advertise the HTTP host via mDNS
//	-interface string     Network interface for mDNS (default: all)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-log-format string    Log format: text, json (default "text")
//	-protocol-log string  File path for access event logging (CBOR format)
//	-interactive          Start the interactive shell
//
// Examples:
//
//	# Publish the default two attributes and serve them on :8377
//	sysattr-device
//
//	# Use a config file, advertise, and log every access to a trace
//	sysattr-device -config /etc/sysattr/device.yaml -mdns -protocol-log device.alog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sysattr/sysattr-go/cmd/sysattr-device/interactive"
	"github.com/sysattr/sysattr-go/pkg/config"
	"github.com/sysattr/sysattr-go/pkg/version"
)

var (
	configFile  = flag.String("config", "", "Configuration file path (YAML, or TOML with a .toml extension)")
	parent      = flag.String("parent", config.DefaultParent, "Parent scope path")
	baseName    = flag.String("base", config.DefaultBaseName, "Directory name")
	listen      = flag.String("listen", config.DefaultAddress, "HTTP listen address")
	noHTTP      = flag.Bool("no-http", false, "Do not serve the namespace over HTTP")
	mdns        = flag.Bool("mdns", false, "Advertise the HTTP host via mDNS")
	iface       = flag.String("interface", "", "Network interface for mDNS (default: all)")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log-format", "text", "Log format: text, json")
	protocolLog = flag.String("protocol-log", "", "File path for access event logging (CBOR format)")
	interact    = flag.Bool("interactive", false, "Start the interactive shell")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile, setFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *interact); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setFlags returns the names of the flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the config file (or the defaults) and applies the flags
// that were set explicitly, so they win over file values.
func loadConfig(path string, set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if set["parent"] {
		cfg.Parent = *parent
	}
	if set["base"] {
		cfg.BaseName = *baseName
	}
	if set["listen"] {
		cfg.HTTP.Address = *listen
	}
	if set["no-http"] && *noHTTP {
		cfg.HTTP.Enabled = false
	}
	if set["mdns"] {
		cfg.MDNS.Enabled = *mdns
	}
	if set["interface"] {
		cfg.MDNS.Interface = *iface
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-format"] {
		cfg.Log.Format = *logFormat
	}
	if set["protocol-log"] {
		cfg.Log.ProtocolLog = *protocolLog
	}

	if err := cfg.Validate(); err != nil {
		return nil, &config.LoadError{File: path, Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// newLogger builds the operational logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(cfg *config.Config, interactiveMode bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shell *interactive.Shell
	var logOut io.Writer = os.Stderr
	if interactiveMode {
		var err error
		if shell, err = interactive.New(); err != nil {
			return err
		}
		// Keep log lines from tearing the prompt.
		logOut = shell.Stdout()
	}

	dev, err := newDevice(cfg, newLogger(cfg.Log, logOut))
	if err != nil {
		if shell != nil {
			_ = shell.Close()
		}
		return err
	}

	dev.logger.Info("sysattr device starting",
		"version", version.Current,
		"root", cfg.Root(),
		"attributes", len(cfg.Attributes))

	if err := dev.start(ctx); err != nil {
		if shell != nil {
			_ = shell.Close()
		}
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if shell != nil {
		shell.Attach(interactive.Config{
			Store:     dev.store,
			Tree:      dev.tree,
			Publisher: dev.publisher,
			Status:    dev.status,
		})
		go shell.Run(ctx, cancel)
	}

	select {
	case sig := <-sigCh:
		dev.logger.Info("received signal", "signal", sig.String())
		if shell != nil {
			_ = shell.Close()
		}
	case <-ctx.Done():
	}

	dev.logger.Info("shutting down")
	return dev.stop()
}
