// Command sysattr-log views and analyzes attribute access traces.
//
// Trace files are written by sysattr-device when started with the
// -protocol-log flag. Each record is one CBOR-encoded access, lifecycle or
// error event.
//
// Usage:
//
//	sysattr-log <command> [flags] <file.alog>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSONL or CSV
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View every rejected write of data_1
//	sysattr-log view -attribute data_1 -outcome rejected_parse device.alog
//
//	# Export one session to CSV
//	sysattr-log export -format csv -session 5f0c1d2e-... device.alog
//
//	# Show statistics
//	sysattr-log stats device.alog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sysattr/sysattr-go/cmd/sysattr-log/commands"
)

const usage = `sysattr-log - Attribute Access Trace Analyzer

Usage:
  sysattr-log <command> [flags] <file.alog>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSONL or CSV
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "sysattr-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a FlagSet with the usage text of one command.
func newFlagSet(name, synopsis, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "sysattr-log %s - %s\n\nUsage:\n  sysattr-log %s %s\n\nFlags:\n", name, synopsis, name, args)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the event filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var opts commands.FilterOptions
	fs.StringVar(&opts.Session, "session", "", "Filter by session ID")
	fs.StringVar(&opts.Source, "source", "", "Filter by source (store, namespace, transport)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (access, lifecycle, error)")
	fs.StringVar(&opts.Attribute, "attribute", "", "Filter by attribute name")
	fs.StringVar(&opts.Outcome, "outcome", "", "Filter by outcome (accepted, rejected_parse, rejected_range, not_found, denied, consumed)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return &opts
}

// tracePath parses args and returns the single positional trace file.
func tracePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View trace file in human-readable format", "[flags] <file.alog>")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	if err := commands.RunView(path, *opts, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export trace file to JSONL or CSV", "[flags] <file.alog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	if err := commands.RunExport(path, *format, *output, *opts); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter trace file and write to new file", "-o <out.alog> [flags] <file.alog>")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *output, *opts)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the trace file", "<file.alog>")
	path := tracePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}
