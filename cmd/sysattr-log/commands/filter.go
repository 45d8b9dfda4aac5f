package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sysattr/sysattr-go/pkg/log"
)

// FilterOptions holds the filter flags shared by view, export and filter.
// Empty fields match every event.
type FilterOptions struct {
	Session   string
	Source    string
	Category  string
	Attribute string
	Outcome   string
	TimeStart string
	TimeEnd   string
}

// Build converts the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{
		SessionID: o.Session,
		Attribute: o.Attribute,
	}

	if o.Source != "" {
		s, err := parseSource(o.Source)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Source = &s
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if o.Outcome != "" {
		oc, err := parseOutcome(o.Outcome)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Outcome = &oc
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// RunFilter copies the events of path matching opts into a new trace file
// and returns how many were written.
func RunFilter(path, output string, opts FilterOptions) (int, error) {
	filter, err := opts.Build()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}
	return count, nil
}

func parseSource(s string) (log.Source, error) {
	switch strings.ToLower(s) {
	case "store":
		return log.SourceStore, nil
	case "namespace":
		return log.SourceNamespace, nil
	case "transport":
		return log.SourceTransport, nil
	default:
		return 0, fmt.Errorf("invalid source: %s (must be store, namespace, or transport)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "access":
		return log.CategoryAccess, nil
	case "lifecycle":
		return log.CategoryLifecycle, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be access, lifecycle, or error)", s)
	}
}

func parseOutcome(s string) (log.Outcome, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "accepted":
		return log.OutcomeAccepted, nil
	case "rejected_parse", "parse":
		return log.OutcomeRejectedParse, nil
	case "rejected_range", "range":
		return log.OutcomeRejectedRange, nil
	case "not_found":
		return log.OutcomeNotFound, nil
	case "denied":
		return log.OutcomeDenied, nil
	case "consumed":
		return log.OutcomeConsumed, nil
	default:
		return 0, fmt.Errorf("invalid outcome: %s (must be accepted, rejected_parse, rejected_range, not_found, denied, or consumed)", s)
	}
}
