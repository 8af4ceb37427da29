package chaos

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chaosNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func writeLog(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func eventLine(t time.Time, action, system string) string {
	return fmt.Sprintf(`{"executed_at": %q, "action": %q, "target_system": %q}`,
		t.Format(time.RFC3339), action, system)
}

func TestReaderEvents(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "events-2025-03-09.jsonl",
		eventLine(chaosNow.AddDate(0, 0, -1), "kill-pod", "Kubernetes"),
		eventLine(chaosNow.AddDate(0, 0, -10), "fill-disk", "Postgres"),
	)
	writeLog(t, dir, "events-2025-03-10.jsonl",
		eventLine(chaosNow.Add(-time.Hour), "drop-traffic", "Redis"),
	)

	r := NewReader(dir)
	events, err := r.Events(chaosNow.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, events, 2, "events older than the window are excluded")
	assert.Equal(t, "Redis", events[0].TargetSystem, "newest first")
	assert.Equal(t, "Kubernetes", events[1].TargetSystem)
}

func TestReaderEventsNestedDirs(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "2025", "03"), "events-2025-03-10.jsonl",
		eventLine(chaosNow.Add(-time.Hour), "kill-pod", "Kubernetes"),
	)

	events, err := NewReader(dir).Events(chaosNow.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "events-2025-03-10.jsonl",
		"not json",
		eventLine(chaosNow.Add(-time.Hour), "kill-pod", "Kubernetes"),
		"{\"executed_at\": \"garbage\"}",
		"",
	)

	events, err := NewReader(dir).Events(time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReaderIgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "notes.txt", eventLine(chaosNow, "kill-pod", "Kubernetes"))

	events, err := NewReader(dir).Events(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReaderMissingDir(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "does-not-exist"))

	events, err := r.Events(time.Time{})
	require.NoError(t, err, "an absent log means no chaos runs, not a failure")
	assert.Empty(t, events)
}

func TestRecentSystems(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "events-2025-03-10.jsonl",
		eventLine(chaosNow.Add(-3*time.Hour), "kill-pod", "Kubernetes"),
		eventLine(chaosNow.Add(-2*time.Hour), "drop-traffic", "Redis"),
		eventLine(chaosNow.Add(-1*time.Hour), "kill-pod", "Kubernetes"),
	)

	systems, err := NewReader(dir).RecentSystems(chaosNow.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes", "Redis"}, systems, "deduped, most recent first")
}
