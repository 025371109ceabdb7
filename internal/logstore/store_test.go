package logstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edulog/edulog/internal/record"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	sess := record.Session{ID: "20240101T120000.000", StudentID: "alice", CreatedAt: time.Now()}
	s := New(dir, sess, zerolog.Nop())
	s.SetFileBase("main.py")
	// Keep the debounce timer from firing during tests that count requests.
	s.FlushDelay = time.Hour
	return s, dir
}

func keyRecord(key string) record.KeyRecord {
	return record.KeyRecord{Timestamp: time.Now().UTC(), Key: key, LineText: key}
}

// Twelve keystrokes with no other activity schedule exactly two flushes from
// the every-tenth-keystroke rule (the 1st and 11th append).
func TestKeystrokeFlushCadence(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	for i := 0; i < 12; i++ {
		s.AppendKey(keyRecord("x"))
	}

	s.mu.Lock()
	got := s.scheduled
	entries := len(s.editLog)
	s.mu.Unlock()

	if got != 2 {
		t.Errorf("scheduled flushes: want 2, got %d", got)
	}
	if entries != 12 {
		t.Errorf("buffered keystrokes: want 12, got %d", entries)
	}
}

// Every structural edit schedules a flush.
func TestEditAppendsAlwaysSchedule(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.AppendEdit(record.EditRecord{Timestamp: time.Now(), Kind: record.EditInsert})
	}

	s.mu.Lock()
	got := s.scheduled
	s.mu.Unlock()
	if got != 5 {
		t.Errorf("scheduled flushes: want 5, got %d", got)
	}
}

// A part already at the size threshold is never written again; the next
// flush targets the following part number.
func TestPartRotationAtThreshold(t *testing.T) {
	s, dir := newTestStore(t)
	defer s.Close()

	part1 := PartPath(dir, "alice", "main.py", "20240101T120000.000", 1)
	full := bytes.Repeat([]byte("x"), PartSizeLimit)
	if err := os.WriteFile(part1, full, 0o644); err != nil {
		t.Fatal(err)
	}

	active := s.ActivePartPath()
	want := PartPath(dir, "alice", "main.py", "20240101T120000.000", 2)
	if active != want {
		t.Fatalf("active part: want %s, got %s", want, active)
	}

	s.AppendEdit(record.EditRecord{Timestamp: time.Now(), Kind: record.EditInsert})
	s.FlushNow()

	// Part 1 untouched, part 2 written.
	data, err := os.ReadFile(part1)
	if err != nil || !bytes.Equal(data, full) {
		t.Errorf("part 1 was rewritten after reaching the threshold")
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("part 2 not written: %v", err)
	}
}

// A part one byte below the threshold stays active.
func TestPartBelowThresholdStaysActive(t *testing.T) {
	s, dir := newTestStore(t)
	defer s.Close()

	part1 := PartPath(dir, "alice", "main.py", "20240101T120000.000", 1)
	if err := os.WriteFile(part1, bytes.Repeat([]byte("x"), PartSizeLimit-1), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.ActivePartPath(); got != part1 {
		t.Errorf("active part: want %s, got %s", part1, got)
	}
}

// Two consecutive flushes with no intervening append write byte-identical
// payloads.
func TestFlushIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	s.AppendEdit(record.EditRecord{Timestamp: time.Unix(100, 0).UTC(), Kind: record.EditInsert, Text: "x"})
	s.AppendKey(record.KeyRecord{Timestamp: time.Unix(101, 0).UTC(), Key: "Enter"})

	s.FlushNow()
	first, err := os.ReadFile(s.ActivePartPath())
	if err != nil {
		t.Fatal(err)
	}

	s.FlushNow()
	second, err := os.ReadFile(s.ActivePartPath())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("flush payloads differ:\n%s\n%s", first, second)
	}
}

// Switching targets flushes buffered records to the old target and starts
// fresh buffers for the new one.
func TestSwitchTargetFlushesOldTarget(t *testing.T) {
	s, dir := newTestStore(t)
	defer s.Close()

	s.AppendEdit(record.EditRecord{Timestamp: time.Now().UTC(), Kind: record.EditInsert})
	s.SwitchTarget("alice", "other.py", "20240101T120000.000")

	oldPart := PartPath(dir, "alice", "main.py", "20240101T120000.000", 1)
	data, err := os.ReadFile(oldPart)
	if err != nil {
		t.Fatalf("old target not flushed: %v", err)
	}
	if !strings.Contains(string(data), `"fileName":"main.py"`) {
		t.Errorf("old part misattributed: %s", data)
	}

	snap := s.Snapshot()
	if snap.FileName != "other.py" {
		t.Errorf("target: want other.py, got %s", snap.FileName)
	}
	if len(snap.EditLog) != 0 {
		t.Errorf("buffers not reset after retarget: %d entries", len(snap.EditLog))
	}
}

// A flush requested while a write is in flight is queued, not dropped, and
// replayed once the write completes.
func TestFlushDuringWriteIsQueued(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	s.AppendEdit(record.EditRecord{Timestamp: time.Now().UTC(), Kind: record.EditInsert})

	// Hold the in-flight guard as if a write were still running.
	s.mu.Lock()
	s.saving = true
	s.mu.Unlock()

	s.FlushNow()

	s.mu.Lock()
	queued := s.pending
	s.mu.Unlock()
	if !queued {
		t.Fatal("flush during in-flight write was not queued")
	}
	if _, err := os.Stat(s.ActivePartPath()); !os.IsNotExist(err) {
		t.Fatalf("queued flush wrote while the guard was held: %v", err)
	}

	// Release the guard; the next flush writes and replays the queued request.
	s.mu.Lock()
	s.saving = false
	s.mu.Unlock()
	s.FlushNow()

	s.mu.Lock()
	queued = s.pending
	s.mu.Unlock()
	if queued {
		t.Errorf("pending request not cleared after replay")
	}
	if _, err := os.Stat(s.ActivePartPath()); err != nil {
		t.Errorf("queued flush never written: %v", err)
	}
}

// A failed write never corrupts or drops buffered state.
func TestFlushFailureKeepsState(t *testing.T) {
	sess := record.Session{ID: "20240101T120000.000", StudentID: "alice"}
	s := New(filepath.Join(t.TempDir(), "missing-subdir"), sess, zerolog.Nop())
	s.SetFileBase("main.py")
	s.FlushDelay = time.Hour
	defer s.Close()

	s.AppendEdit(record.EditRecord{Timestamp: time.Now(), Kind: record.EditDelete})
	s.FlushNow() // write fails: directory does not exist

	snap := s.Snapshot()
	if len(snap.EditLog) != 1 {
		t.Errorf("in-memory state lost after failed flush: %d entries", len(snap.EditLog))
	}
}

// The debounce window collapses a burst of appends into one write.
func TestDebouncedFlushWritesOnce(t *testing.T) {
	s, _ := newTestStore(t)
	s.FlushDelay = 50 * time.Millisecond

	for i := 0; i < 5; i++ {
		s.AppendEdit(record.EditRecord{Timestamp: time.Now().UTC(), Kind: record.EditInsert})
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(s.ActivePartPath())
		if err == nil && bytes.Count(data, []byte(`"type":"edit"`)) == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("debounced flush never persisted all edits (last: %v, %s)", err, data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Close()
}
