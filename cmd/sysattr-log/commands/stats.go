package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sysattr/sysattr-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsBySource   map[log.Source]int
	EventsByCategory map[log.Category]int
	AccessOutcomes   map[log.Outcome]int
	Attributes       map[string]*AttributeStats
	Sessions         map[string]*SessionStats
	Watches          int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// AttributeStats holds access counts for a single attribute.
type AttributeStats struct {
	Reads     int
	Writes    int
	Rejected  int
	LastValue int64
}

// SessionStats holds statistics for one publish session.
type SessionStats struct {
	BaseName  string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
}

// CollectStats reads the trace file at path and aggregates it.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsBySource:   make(map[log.Source]int),
		EventsByCategory: make(map[log.Category]int),
		AccessOutcomes:   make(map[log.Outcome]int),
		Attributes:       make(map[string]*AttributeStats),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsBySource[event.Source]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.SessionID != "" {
		sess, ok := s.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.Lifecycle != nil && sess.BaseName == "" {
			sess.BaseName = event.Lifecycle.BaseName
		}
	}

	if a := event.Access; a != nil && a.Op == log.OpWatch {
		s.Watches++
	} else if a != nil {
		s.AccessOutcomes[a.Outcome]++
		as, ok := s.Attributes[a.Attribute]
		if !ok {
			as = &AttributeStats{}
			s.Attributes[a.Attribute] = as
		}
		if a.Op == log.OpWrite {
			as.Writes++
		} else {
			as.Reads++
		}
		if a.Outcome.Rejected() {
			as.Rejected++
		}
		if a.Outcome != log.OutcomeNotFound && a.Outcome != log.OutcomeConsumed {
			as.LastValue = a.Value
		}
	}

	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== sysattr Access Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Source:")
	for _, src := range []log.Source{log.SourceStore, log.SourceNamespace, log.SourceTransport} {
		if count := stats.EventsBySource[src]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", src.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryAccess, log.CategoryLifecycle, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.AccessOutcomes) > 0 {
		fmt.Fprintln(w, "Access Outcomes:")
		for _, oc := range []log.Outcome{log.OutcomeAccepted, log.OutcomeRejectedParse, log.OutcomeRejectedRange, log.OutcomeNotFound, log.OutcomeDenied, log.OutcomeConsumed} {
			if count := stats.AccessOutcomes[oc]; count > 0 {
				fmt.Fprintf(w, "  %-16s %d\n", oc.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	if len(stats.Attributes) > 0 {
		names := make([]string, 0, len(stats.Attributes))
		for name := range stats.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "Attributes:")
		for _, name := range names {
			as := stats.Attributes[name]
			fmt.Fprintf(w, "  %-16s reads %d, writes %d, rejected %d, last %d\n",
				name, as.Reads, as.Writes, as.Rejected, as.LastValue)
		}
		fmt.Fprintln(w)
	}

	if stats.Watches > 0 {
		fmt.Fprintf(w, "Watch Streams: %d\n", stats.Watches)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.BaseName != "" {
				fmt.Fprintf(w, "           Base: %s\n", s.stats.BaseName)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
