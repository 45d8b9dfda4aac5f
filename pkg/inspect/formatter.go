package inspect

import (
	"fmt"
	"io/fs"
	"strings"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes bounds and unit information
	ShowMetadata bool

	// ShowModes includes permission bits
	ShowModes bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowModes:    false,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatValue formats a value with an optional unit.
func (f *Formatter) FormatValue(v int64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d %s", v, unit)
}

// FormatEntry formats a single entry line.
func (f *Formatter) FormatEntry(node *NodeInfo) string {
	var sb strings.Builder
	if f.ShowModes {
		sb.WriteString(FormatMode(node.Mode))
		sb.WriteString(" ")
	}
	sb.WriteString(node.Name)
	sb.WriteString(" = ")

	switch {
	case node.Value != nil && node.Definition != nil:
		sb.WriteString(f.FormatValue(*node.Value, node.Definition.Unit))
		if f.ShowMetadata {
			sb.WriteString(" ")
			sb.WriteString(FormatRange(node.Definition.Min, node.Definition.Max))
		}
	case node.Text != "":
		sb.WriteString(fmt.Sprintf("%q", node.Text))
	default:
		sb.WriteString("(unreadable)")
	}
	return sb.String()
}

// FormatMode formats permission bits the way ls does.
func FormatMode(mode fs.FileMode) string {
	return mode.String()
}

// FormatRange formats inclusive bounds.
func FormatRange(lo, hi int64) string {
	return fmt.Sprintf("[%d..%d]", lo, hi)
}

// ValueRow represents a formatted attribute for display.
type ValueRow struct {
	Name  string
	Value string
	Range string
	Unit  string
}

// FormatValueTable formats a list of attribute values as a table.
func (f *Formatter) FormatValueTable(rows []ValueRow) string {
	if len(rows) == 0 {
		return "  (no attributes)"
	}

	width := 0
	for _, row := range rows {
		if len(row.Name) > width {
			width = len(row.Name)
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		value := row.Value
		if row.Unit != "" {
			value += " " + row.Unit
		}
		sb.WriteString(fmt.Sprintf("  %-*s  %s", width, row.Name, value))
		if f.ShowMetadata && row.Range != "" {
			sb.WriteString("  ")
			sb.WriteString(row.Range)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
