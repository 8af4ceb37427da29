// Package chaos reads the historical record of fault-injection runs.
// The chaos tooling that executes the faults is a separate program; this
// engine only consumes its JSON-lines event log, read-only, to know which
// systems the operator has touched recently.
package chaos

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches the per-day event log files the chaos tooling
// writes (e.g. events-2025-03-10.jsonl), in any subdirectory.
const DefaultPattern = "**/events-*.jsonl"

// Event is one recorded fault-injection run.
type Event struct {
	ExecutedAt   time.Time `json:"executed_at"`
	Action       string    `json:"action"`
	TargetSystem string    `json:"target_system"`
	Notes        string    `json:"notes,omitempty"`
}

// Reader reads chaos events from a log directory.
type Reader struct {
	dir     string
	pattern string
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithPattern overrides the glob pattern used to discover log files.
func WithPattern(pattern string) ReaderOption {
	return func(r *Reader) {
		r.pattern = pattern
	}
}

// NewReader creates a reader over the given log directory.
func NewReader(dir string, opts ...ReaderOption) *Reader {
	r := &Reader{
		dir:     dir,
		pattern: DefaultPattern,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the log directory being read.
func (r *Reader) Dir() string {
	return r.dir
}

// Events returns all events recorded at or after since, newest first.
// A missing log directory means no chaos runs yet, not an error.
// Individual malformed lines are skipped: the log belongs to another
// tool and one bad line must not hide the rest of the history.
func (r *Reader) Events(since time.Time) ([]Event, error) {
	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		return nil, nil
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(r.dir, r.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob chaos logs: %w", err)
	}

	var events []Event
	for _, path := range paths {
		fileEvents, err := readEventFile(path, since)
		if err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ExecutedAt.After(events[j].ExecutedAt)
	})
	return events, nil
}

// RecentSystems returns the distinct target systems touched at or after
// since, ordered by most recent event first.
func (r *Reader) RecentSystems(since time.Time) ([]string, error) {
	events, err := r.Events(since)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var systems []string
	for _, ev := range events {
		if ev.TargetSystem == "" || seen[ev.TargetSystem] {
			continue
		}
		seen[ev.TargetSystem] = true
		systems = append(systems, ev.TargetSystem)
	}
	return systems, nil
}

func readEventFile(path string, since time.Time) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chaos log %s: %w", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.ExecutedAt.Before(since) {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chaos log %s: %w", path, err)
	}
	return events, nil
}
