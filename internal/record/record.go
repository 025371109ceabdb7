// Package record defines the data model for a logging session: the session
// identity and the typed activity records (edits, keystrokes, errors,
// executions) that accumulate into one persisted snapshot per session.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Session identifies one continuous activation of the logger.
// Created once at startup; immutable afterwards.
type Session struct {
	ID        string    `json:"sessionId"`
	StudentID string    `json:"studentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// sessionIDFormat yields ids that sort lexicographically in creation order.
const sessionIDFormat = "20060102T150405.000"

// NewSession creates a session with a time-derived, sortable id.
func NewSession(studentID string, at time.Time) Session {
	return Session{
		ID:        at.UTC().Format(sessionIDFormat),
		StudentID: studentID,
		CreatedAt: at,
	}
}

// Position is a zero-based cursor location in a document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// EditKind classifies a document change.
type EditKind string

const (
	EditInsert  EditKind = "insert"
	EditDelete  EditKind = "delete"
	EditReplace EditKind = "replace"
)

// EditRecord captures one structural document change.
type EditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Range     Range     `json:"range"`
	Text      string    `json:"text"`
	Kind      EditKind  `json:"kind"`
	LineText  string    `json:"lineText"`
}

// KeyRecord captures one raw keystroke. Key is a single character or a
// symbolic name such as "Delete" or "Enter".
type KeyRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	Position  Position  `json:"position"`
	LineText  string    `json:"lineText"`
}

// ErrorRecord captures an error observed during the session, optionally with
// a stack trace and a snapshot of the source that produced it.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stack     *string   `json:"stack,omitempty"`
	Code      string    `json:"code,omitempty"`
	Language  string    `json:"language,omitempty"`
	Event     string    `json:"event,omitempty"`
}

// Execution event names.
const (
	ExecutionStart = "execution_start"
	ExecutionEnd   = "execution_end"
)

// ExecutionRecord captures one boundary of an external process run. Start
// records carry only the target; end records add the captured output, exit
// code, and duration.
type ExecutionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event"`
	RunID      string    `json:"runId"`
	File       string    `json:"file"`
	Language   string    `json:"language,omitempty"`
	Stdout     string    `json:"stdout,omitempty"`
	Stderr     string    `json:"stderr,omitempty"`
	ExitCode   *int      `json:"exitCode,omitempty"`
	DurationMS int64     `json:"durationMs,omitempty"`
}

// Entry is one element of the combined edit log: either an EditRecord or a
// KeyRecord, distinguished on the wire by a "type" field.
type Entry struct {
	Edit *EditRecord
	Key  *KeyRecord
}

// Timestamp returns the timestamp of whichever variant is set.
func (e Entry) Timestamp() time.Time {
	if e.Edit != nil {
		return e.Edit.Timestamp
	}
	if e.Key != nil {
		return e.Key.Timestamp
	}
	return time.Time{}
}

type editEnvelope struct {
	Type string `json:"type"`
	*EditRecord
}

type keyEnvelope struct {
	Type string `json:"type"`
	*KeyRecord
}

// MarshalJSON flattens the set variant and adds the "type" discriminator.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Edit != nil:
		return json.Marshal(editEnvelope{Type: "edit", EditRecord: e.Edit})
	case e.Key != nil:
		return json.Marshal(keyEnvelope{Type: "key", KeyRecord: e.Key})
	}
	return nil, fmt.Errorf("empty edit-log entry")
}

// UnmarshalJSON restores the variant from the "type" discriminator.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Type {
	case "edit":
		var r EditRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		e.Edit, e.Key = &r, nil
	case "key":
		var r KeyRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		e.Edit, e.Key = nil, &r
	default:
		return fmt.Errorf("unknown edit-log entry type %q", probe.Type)
	}
	return nil
}

// Snapshot is the complete persisted state of one session for one source
// file. Each flush writes a full Snapshot; log-file parts are snapshots at
// different points in time, never diffs.
type Snapshot struct {
	StudentID    string            `json:"studentId"`
	SessionID    string            `json:"sessionId"`
	FileName     string            `json:"fileName"`
	EditLog      []Entry           `json:"editLog"`
	ErrorLog     []ErrorRecord     `json:"errorLog"`
	ExecutionLog []ExecutionRecord `json:"executionLog"`
}

// NewSnapshot returns a snapshot with empty (non-nil) logs so serialization
// always yields arrays.
func NewSnapshot(studentID, sessionID, fileName string) Snapshot {
	return Snapshot{
		StudentID:    studentID,
		SessionID:    sessionID,
		FileName:     fileName,
		EditLog:      []Entry{},
		ErrorLog:     []ErrorRecord{},
		ExecutionLog: []ExecutionRecord{},
	}
}
