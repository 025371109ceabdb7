// Package logstore accumulates activity records for one logging session and
// persists them as JSON snapshots, debouncing writes and rotating output
// files by size.
package logstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edulog/edulog/internal/record"
)

// DefaultFlushDelay is the debounce window between a schedule request and the
// actual write. Repeated requests within the window collapse into one flush.
const DefaultFlushDelay = 1000 * time.Millisecond

// keyFlushEvery is how many raw keystroke records pass between scheduled
// flushes. Structural edits schedule a flush on every append; keystrokes only
// every Nth, bounding write pressure during fast typing.
const keyFlushEvery = 10

// Store buffers one session's log records in memory and flushes complete
// snapshots to size-rotated JSON parts. Appends never fail; write errors are
// reported to the diagnostic logger and retried implicitly on the next flush,
// since every flush writes the full current state.
type Store struct {
	// FlushDelay is the debounce window. Set before first use; defaults to
	// DefaultFlushDelay.
	FlushDelay time.Duration

	log zerolog.Logger
	dir string

	mu        sync.Mutex
	studentID string
	sessionID string
	fileBase  string
	editLog   []record.Entry
	errorLog  []record.ErrorRecord
	execLog   []record.ExecutionRecord
	keyCount  int
	timer     *time.Timer
	scheduled int // flush requests, observed by tests
	saving    bool
	pending   bool
}

// New returns a store writing parts for sess into dir. The zerolog logger is
// the diagnostic channel for write failures.
func New(dir string, sess record.Session, logger zerolog.Logger) *Store {
	return &Store{
		FlushDelay: DefaultFlushDelay,
		log:        logger,
		dir:        dir,
		studentID:  sess.StudentID,
		sessionID:  sess.ID,
		editLog:    []record.Entry{},
		errorLog:   []record.ErrorRecord{},
		execLog:    []record.ExecutionRecord{},
	}
}

// AppendEdit adds a structural edit record and schedules a flush.
func (s *Store) AppendEdit(r record.EditRecord) {
	s.mu.Lock()
	s.editLog = append(s.editLog, record.Entry{Edit: &r})
	s.mu.Unlock()
	s.ScheduleFlush()
}

// AppendKey adds a raw keystroke record. Only every tenth keystroke schedules
// a flush; the debounce timer still guarantees the final state is written
// once typing stops and something else schedules.
func (s *Store) AppendKey(r record.KeyRecord) {
	s.mu.Lock()
	s.editLog = append(s.editLog, record.Entry{Key: &r})
	trigger := s.keyCount%keyFlushEvery == 0
	s.keyCount++
	s.mu.Unlock()
	if trigger {
		s.ScheduleFlush()
	}
}

// AppendError adds an error record and schedules a flush.
func (s *Store) AppendError(r record.ErrorRecord) {
	s.mu.Lock()
	s.errorLog = append(s.errorLog, r)
	s.mu.Unlock()
	s.ScheduleFlush()
}

// AppendExecution adds an execution record and schedules a flush.
func (s *Store) AppendExecution(r record.ExecutionRecord) {
	s.mu.Lock()
	s.execLog = append(s.execLog, r)
	s.mu.Unlock()
	s.ScheduleFlush()
}

// ScheduleFlush arms the debounce timer. Calls while the timer is already
// armed collapse into the pending flush.
func (s *Store) ScheduleFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled++
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.FlushDelay, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		s.FlushNow()
	})
}

// FlushNow serializes the full current state and writes it to the active
// part. A request arriving while a write is in flight is queued and replayed
// once the write completes, so no snapshot is silently dropped. Failures are
// logged, never returned: the next flush carries a superset of this state.
func (s *Store) FlushNow() {
	s.mu.Lock()
	if s.saving {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.saving = true
	snap := s.snapshotLocked()
	path := activePart(s.dir, s.studentID, s.fileBase, s.sessionID)
	s.mu.Unlock()

	if err := writeSnapshot(path, snap); err != nil {
		s.log.Error().Err(err).Str("part", path).Msg("log flush failed")
	}

	s.mu.Lock()
	s.saving = false
	again := s.pending
	s.pending = false
	s.mu.Unlock()
	if again {
		s.FlushNow()
	}
}

// SwitchTarget repoints the store at a new (studentId, fileBase, sessionId)
// triple when the active document changes. Buffered state is flushed to the
// old target first so no record is attributed to the wrong file, then the
// buffers start fresh for the new target.
func (s *Store) SwitchTarget(studentID, fileBase, sessionID string) {
	s.mu.Lock()
	same := s.studentID == studentID && s.fileBase == fileBase && s.sessionID == sessionID
	hadTarget := s.fileBase != ""
	s.mu.Unlock()
	if same {
		return
	}

	// No flush before the first target: there is nothing attributed yet.
	if hadTarget {
		s.FlushNow()
	}

	s.mu.Lock()
	s.studentID = studentID
	s.fileBase = fileBase
	s.sessionID = sessionID
	s.editLog = []record.Entry{}
	s.errorLog = []record.ErrorRecord{}
	s.execLog = []record.ExecutionRecord{}
	s.keyCount = 0
	s.mu.Unlock()
}

// SetFileBase sets the source-file base name without resetting buffers.
// Used once at startup before any records exist.
func (s *Store) SetFileBase(base string) {
	s.mu.Lock()
	s.fileBase = base
	s.mu.Unlock()
}

// Snapshot returns a copy of the full current in-memory state.
func (s *Store) Snapshot() record.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() record.Snapshot {
	snap := record.NewSnapshot(s.studentID, s.sessionID, s.fileBase)
	snap.EditLog = append(snap.EditLog, s.editLog...)
	snap.ErrorLog = append(snap.ErrorLog, s.errorLog...)
	snap.ExecutionLog = append(snap.ExecutionLog, s.execLog...)
	return snap
}

// ActivePartPath returns the path the next flush will write to.
func (s *Store) ActivePartPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return activePart(s.dir, s.studentID, s.fileBase, s.sessionID)
}

// Close stops the debounce timer and flushes any buffered state.
func (s *Store) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.FlushNow()
}

// writeSnapshot marshals snap and writes it to path via a temp file and
// os.Rename, so a crash mid-write never leaves a truncated part. The write
// replaces the active part wholesale; once a part reaches PartSizeLimit,
// activePart stops returning it and it is never touched again.
func writeSnapshot(path string, snap record.Snapshot) (err error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "part-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
