// Package commands implements the sysattr-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sysattr/sysattr-go/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the events of path matching opts in human-readable form.
func RunView(path string, opts FilterOptions, output io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] SOURCE Type
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [sess:%s] %-9s %s\n", ts, shortenID(event.SessionID), event.Source, typeLabel(event))

	if event.RemoteAddr != "" || event.RequestID != "" {
		fmt.Fprintf(w, "  Peer: %s  Request: %s\n", orDash(event.RemoteAddr), orDash(shortenID(event.RequestID)))
	}

	switch {
	case event.Access != nil:
		a := event.Access
		fmt.Fprintf(w, "  Attribute: %s\n", a.Attribute)
		if a.Op == log.OpWatch {
			break
		}
		if a.Op == log.OpWrite {
			fmt.Fprintf(w, "  Input: %s (%d bytes consumed)\n", strconv.Quote(string(a.Input)), a.Consumed)
		}
		fmt.Fprintf(w, "  Outcome: %s\n", a.Outcome)
		fmt.Fprintf(w, "  Value: %d\n", a.Value)

	case event.Lifecycle != nil:
		l := event.Lifecycle
		fmt.Fprintf(w, "  Base: %s\n", l.BaseName)
		if l.Path != "" {
			fmt.Fprintf(w, "  Path: %s\n", l.Path)
		}
		fmt.Fprintf(w, "  Entries: %d\n", l.Entries)
		if l.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", l.Reason)
		}

	case event.Error != nil:
		fmt.Fprintf(w, "  Error: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Access != nil:
		return event.Access.Op.String()
	case event.Lifecycle != nil:
		return event.Lifecycle.Action.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a UUID-like identifier.
func shortenID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
