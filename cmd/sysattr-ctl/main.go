// Command sysattr-ctl reads and writes attributes of a remote sysattr-device.
//
// The target is given by URL, or found on the local network via mDNS by the
// directory it serves.
//
// Usage:
//
//	sysattr-ctl <command> [flags] [args]
//
// Commands:
//
//	discover   Browse the network for namespace hosts
//	health     Show host status and protocol version
//	ls         List a directory
//	cat        Print an entry
//	dump       Print every entry of a directory
//	write      Write a value to an entry
//	watch      Stream value changes until interrupted
//
// Examples:
//
//	# Find hosts
//	sysattr-ctl discover -timeout 3s
//
//	# Read an attribute from a known host
//	sysattr-ctl cat -url http://192.0.2.10:8377 simple_sysfs/simple_sysfs_data_1
//
//	# Write via discovery
//	sysattr-ctl write -base simple_sysfs simple_sysfs/simple_sysfs_data_1 42
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sysattr/sysattr-go/cmd/sysattr-ctl/commands"
	"github.com/sysattr/sysattr-go/pkg/discovery"
)

const usage = `sysattr-ctl - Remote Attribute Client

Usage:
  sysattr-ctl <command> [flags] [args]

Commands:
  discover   Browse the network for namespace hosts
  health     Show host status and protocol version
  ls         List a directory            (ls [path])
  cat        Print an entry              (cat <path>)
  dump       Print every entry of a dir  (dump [path])
  write      Write a value to an entry   (write <path> <value>)
  watch      Stream value changes        (watch [attribute...])

Every command except discover takes -url or -base to select the host.
Use "sysattr-ctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "discover":
		err = runDiscover(ctx, args)
	case "health", "ls", "cat", "dump", "write", "watch":
		err = runRemote(ctx, cmd, args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newBrowser(iface string, timeout time.Duration) (*discovery.MDNSBrowser, error) {
	cfg := discovery.DefaultBrowserConfig()
	cfg.Interface = iface
	if timeout > 0 {
		cfg.BrowseTimeout = timeout
	}
	return discovery.NewMDNSBrowser(cfg)
}

func runDiscover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	timeout := fs.Duration("timeout", 5*time.Second, "How long to browse")
	iface := fs.String("interface", "", "Network interface to browse on (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	browser, err := newBrowser(*iface, *timeout)
	if err != nil {
		return err
	}
	defer browser.Stop()

	n, err := commands.RunDiscover(ctx, browser, *timeout, os.Stdout)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintf(os.Stderr, "No %s services found\n", discovery.ServiceType)
	}
	return nil
}

func runRemote(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var opts commands.TargetOptions
	fs.StringVar(&opts.URL, "url", "", "Host base URL (e.g. http://192.0.2.10:8377)")
	fs.StringVar(&opts.BaseName, "base", "", "Find the host serving this directory via mDNS")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Request and discovery timeout")
	fs.IntVar(&opts.Retries, "retries", 2, "Retries for failed reads")
	iface := fs.String("interface", "", "Network interface for mDNS (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var finder commands.Finder
	if opts.URL == "" && opts.BaseName != "" {
		browser, err := newBrowser(*iface, opts.Timeout)
		if err != nil {
			return err
		}
		defer browser.Stop()
		finder = browser
	}

	target, err := commands.Connect(ctx, opts, finder)
	if err != nil {
		return err
	}
	if target.Service != nil {
		fmt.Fprintf(os.Stderr, "Using %s\n", target.Service)
	}

	arg := func(i int) string {
		if i < fs.NArg() {
			return fs.Arg(i)
		}
		return ""
	}

	switch cmd {
	case "health":
		return commands.RunHealth(ctx, target, os.Stdout)
	case "ls":
		return commands.RunList(ctx, target, arg(0), os.Stdout)
	case "cat":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: sysattr-ctl cat [flags] <path>")
		}
		return commands.RunCat(ctx, target, arg(0), os.Stdout)
	case "dump":
		return commands.RunDump(ctx, target, arg(0), os.Stdout)
	case "write":
		if fs.NArg() < 2 {
			return fmt.Errorf("usage: sysattr-ctl write [flags] <path> <value>")
		}
		return commands.RunWrite(ctx, target, arg(0), arg(1), os.Stdout)
	case "watch":
		return commands.RunWatch(ctx, target, fs.Args(), os.Stdout)
	}
	return nil
}
