// Package interactive provides the interactive command-line interface
// for sysattr-device.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/inspect"
	"github.com/sysattr/sysattr-go/pkg/namespace"
)

// StatusFunc reports serving details (listen address, mDNS instance) that
// the shell prints under "status". It may be nil.
type StatusFunc func() []string

// Config wires the shell to a running device.
type Config struct {
	Store     *attr.Store
	Tree      *namespace.Tree
	Publisher *namespace.Publisher
	Status    StatusFunc
}

// Shell handles interactive mode for sysattr-device.
type Shell struct {
	config    Config
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
	out       io.Writer

	mu          sync.Mutex
	stopWatchFn func()
}

// New creates a shell reading commands from the terminal. Attach must be
// called before Run.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sysattr> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(rl.Stdout())
	s.rl = rl
	return s, nil
}

// newShell creates a shell without a terminal; commands are fed to Exec.
func newShell(out io.Writer) *Shell {
	return &Shell{
		formatter: inspect.NewFormatter(),
		out:       out,
	}
}

// Attach wires the shell to a running device.
func (s *Shell) Attach(config Config) {
	s.config = config
	s.inspector = inspect.NewInspector(config.Tree, config.Store)
}

// Close releases the terminal without running the command loop.
func (s *Shell) Close() error {
	if s.rl == nil {
		return nil
	}
	return s.rl.Close()
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop. It calls cancel when the user
// exits.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.stopWatch()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if quit := s.Exec(line); quit {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(line string) (quit bool) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "ls", "list":
		s.cmdList(args)

	case "cat", "read", "r":
		s.cmdRead(args)

	case "write", "w":
		s.cmdWrite(args)

	case "inspect", "i":
		s.cmdInspect(args)

	case "values", "v":
		s.cmdValues()

	case "status":
		s.cmdStatus()

	case "watch":
		s.cmdWatch(args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
sysattr Device Commands:
  Inspection:
    ls [path]           - List a directory (default: the tree root)
    inspect [path]      - Show the tree (or a subtree or entry) with values
    values              - Show every attribute with its bounds
    status              - Show publication and serving status

  Access:
    cat <path>          - Read an entry, exactly as a reader would
    write <path> <val>  - Write <val> to an entry (no newline is appended)

  Other:
    watch on|off        - Print accepted value changes as they happen
    help                - Show this help
    exit                - Tear down and exit

  Paths are relative to the tree root or absolute. Entry names may be
  shortened: "simple_sysfs/data_1" resolves "simple_sysfs_data_1".`)
}

// parsePath parses an optional path argument; no argument means the root.
func (s *Shell) parsePath(args []string) (*inspect.Path, bool) {
	if len(args) == 0 {
		return &inspect.Path{}, true
	}
	p, err := inspect.ParsePath(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return nil, false
	}
	return p, true
}

func (s *Shell) cmdList(args []string) {
	p, ok := s.parsePath(args)
	if !ok {
		return
	}
	rel, err := s.inspector.Resolve(p)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	infos, err := s.config.Tree.List(rel)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Fprintln(s.out, "  (empty)")
		return
	}
	for _, info := range infos {
		name := info.Name
		if info.IsDir {
			name += "/"
		}
		fmt.Fprintf(s.out, "  %s  %s\n", inspect.FormatMode(info.Mode), name)
	}
}

func (s *Shell) cmdRead(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: cat <path>")
		fmt.Fprintln(s.out, "  Example: cat simple_sysfs/data_1")
		return
	}
	p, ok := s.parsePath(args)
	if !ok {
		return
	}
	text, err := s.inspector.ReadAttribute(p)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(s.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) cmdWrite(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: write <path> <value>")
		fmt.Fprintln(s.out, "  Example: write simple_sysfs/data_1 42")
		return
	}
	p, ok := s.parsePath(args)
	if !ok {
		return
	}

	value := strings.Join(args[1:], " ")
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = unquoted
	}

	n, err := s.inspector.WriteAttribute(p, value)
	if err != nil {
		fmt.Fprintf(s.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "OK (%d bytes consumed)\n", n)

	// Writes never fail on bad input; show what the entry holds now.
	if text, err := s.inspector.ReadAttribute(p); err == nil {
		fmt.Fprint(s.out, "  ", text)
	}
}

func (s *Shell) cmdInspect(args []string) {
	p, ok := s.parsePath(args)
	if !ok {
		return
	}
	node, err := s.inspector.Inspect(p)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if !node.IsDir {
		fmt.Fprintln(s.out, s.formatter.FormatEntry(node))
		return
	}
	fmt.Fprint(s.out, s.inspector.FormatTree(node, s.formatter))
}

func (s *Shell) cmdValues() {
	attrs := s.config.Store.Attributes()
	rows := make([]inspect.ValueRow, 0, len(attrs))
	for _, a := range attrs {
		def := a.Definition()
		rows = append(rows, inspect.ValueRow{
			Name:  a.Name(),
			Value: strconv.FormatInt(a.Value(), 10),
			Range: inspect.FormatRange(def.Min, def.Max),
			Unit:  def.Unit,
		})
	}
	fmt.Fprint(s.out, s.formatter.FormatValueTable(rows))
}

func (s *Shell) cmdStatus() {
	pub := s.config.Publisher
	fmt.Fprintf(s.out, "State:     %s\n", pub.State())
	if h := pub.Handle(); h != nil {
		fmt.Fprintf(s.out, "Session:   %s\n", h.ID())
		fmt.Fprintf(s.out, "Path:      %s\n", h.Path())
		fmt.Fprintf(s.out, "Entries:   %d\n", len(h.Entries()))
		fmt.Fprintf(s.out, "Published: %s\n", h.PublishedAt().Format("15:04:05"))
	}
	if s.config.Status != nil {
		for _, line := range s.config.Status() {
			fmt.Fprintln(s.out, line)
		}
	}
}

func (s *Shell) cmdWatch(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: watch on|off")
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.startWatch()
		fmt.Fprintln(s.out, "Watching attribute changes")
	case "off":
		s.stopWatch()
		fmt.Fprintln(s.out, "Stopped watching")
	default:
		fmt.Fprintln(s.out, "Usage: watch on|off")
	}
}

func (s *Shell) startWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatchFn != nil {
		return
	}
	s.stopWatchFn = s.config.Store.Subscribe(attr.SubscriberFunc(s.displayChange))
}

func (s *Shell) stopWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatchFn != nil {
		s.stopWatchFn()
		s.stopWatchFn = nil
	}
}

// displayChange prints an accepted write, which may come from any host.
func (s *Shell) displayChange(name string, value int64) {
	unit := ""
	if a, err := s.config.Store.Lookup(name); err == nil {
		unit = a.Definition().Unit
	}
	fmt.Fprintf(s.out, "\n  [change] %s = %s\n", name, s.formatter.FormatValue(value, unit))
}
