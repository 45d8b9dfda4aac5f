package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sysattr/sysattr-go/pkg/inspect"
	"github.com/sysattr/sysattr-go/pkg/version"
)

// RunHealth prints the host's health and checks its protocol version.
func RunHealth(ctx context.Context, t *Target, w io.Writer) error {
	h, err := t.Client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Target:  %s\n", t.Inspector.Target())
	fmt.Fprintf(w, "Status:  %s\n", h.Status)
	fmt.Fprintf(w, "Version: %s\n", h.Version)
	fmt.Fprintf(w, "Root:    %s\n", h.Root)
	fmt.Fprintf(w, "Nodes:   %d\n", h.Nodes)
	return version.Check(h.Version)
}

// RunList prints the children of the directory at p ("" for the root).
func RunList(ctx context.Context, t *Target, p string, w io.Writer) error {
	path, err := parseOptionalPath(p)
	if err != nil {
		return err
	}
	infos, err := t.Inspector.List(ctx, path)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "(empty)")
		return nil
	}
	for _, info := range infos {
		name := info.Name
		if info.IsDir {
			name += "/"
		}
		fmt.Fprintf(w, "%s  %s\n", inspect.FormatMode(info.Mode), name)
	}
	return nil
}

// RunCat prints the text of the entry at p unchanged.
func RunCat(ctx context.Context, t *Target, p string, w io.Writer) error {
	path, err := requirePath(p)
	if err != nil {
		return err
	}
	text, err := t.Inspector.ReadAttribute(ctx, path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// RunWrite writes value to the entry at p and prints the consumed count.
// The host accepts malformed or out-of-range values without changing the
// attribute, so the entry is read back to show the effect.
func RunWrite(ctx context.Context, t *Target, p, value string, w io.Writer) error {
	path, err := requirePath(p)
	if err != nil {
		return err
	}
	n, err := t.Inspector.WriteAttribute(ctx, path, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "OK (%d bytes consumed)\n", n)

	text, err := t.Inspector.ReadAttribute(ctx, path)
	if err != nil {
		// Write-only entries cannot be read back.
		return nil
	}
	fmt.Fprint(w, text)
	return nil
}

// RunDump prints every entry of the directory at p as "name: text".
func RunDump(ctx context.Context, t *Target, p string, w io.Writer) error {
	path, err := parseOptionalPath(p)
	if err != nil {
		return err
	}
	values, err := t.Inspector.ReadAll(ctx, path)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(w, "(no readable entries)")
		return nil
	}

	names := make([]string, 0, len(values))
	width := 0
	for name := range values {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "%-*s  %s\n", width, name, strings.TrimSuffix(values[name], "\n"))
	}
	return nil
}

// RunWatch prints changes of attrs (all when empty) as they happen until ctx
// is done or the host closes the stream.
func RunWatch(ctx context.Context, t *Target, attrs []string, w io.Writer) error {
	stream, err := t.Client.Watch(ctx, attrs...)
	if err != nil {
		return err
	}
	defer stream.Close()

	watched := "all attributes"
	if len(attrs) > 0 {
		watched = strings.Join(attrs, ", ")
	}
	fmt.Fprintf(w, "Watching %s on %s\n", watched, t.Inspector.Target())

	for c := range stream.Changes() {
		if c.Dropped > 0 {
			fmt.Fprintf(w, "  (%d changes dropped)\n", c.Dropped)
		}
		fmt.Fprintf(w, "%s  %s = %d\n", c.Time.Local().Format("15:04:05.000"), c.Attribute, c.Value)
	}
	return stream.Err()
}
