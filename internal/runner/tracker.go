// Package runner models the lifecycle of one external process run (a student
// script execution) as a small state machine, correlating process output and
// exit with execution and error records.
package runner

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edulog/edulog/internal/record"
)

// abortReason is recorded when a run is superseded by a new one.
const abortReason = "Aborted by new execution"

// Sink receives the records a tracker produces. *logstore.Store satisfies it.
type Sink interface {
	AppendExecution(record.ExecutionRecord)
	AppendError(record.ErrorRecord)
}

// State is the lifecycle phase of a run.
type State int

const (
	Idle State = iota
	Running
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// run is one execution instance. A new Start always allocates a fresh run;
// terminal runs never transition again.
type run struct {
	id      string
	file    string
	started time.Time
	state   State
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan struct{}
}

// Tracker owns at most one in-flight run. Starting a new run while one is
// active force-terminates the old process and records it as aborted.
type Tracker struct {
	// Language tags derived error records and execution records.
	Language string

	sink Sink
	log  zerolog.Logger

	mu  sync.Mutex
	cur *run
}

// New returns a tracker that hands records to sink.
func New(sink Sink, logger zerolog.Logger) *Tracker {
	return &Tracker{Language: "python", sink: sink, log: logger}
}

// Start begins a new run for filePath and emits its execution_start record.
// An active previous run is killed and finished as aborted first. Returns the
// run id correlating the start and end records.
func (t *Tracker) Start(filePath string) string {
	t.mu.Lock()
	if prev := t.cur; prev != nil && prev.state == Running {
		if prev.cmd != nil && prev.cmd.Process != nil {
			// Fire-and-forget kill; the waiter's Finish becomes a no-op
			// because the run is already terminal.
			_ = prev.cmd.Process.Kill()
		}
		t.finishLocked(prev, -1, abortReason, Aborted)
	}
	r := &run{
		id:      uuid.New().String(),
		file:    filePath,
		started: time.Now(),
		state:   Running,
		done:    make(chan struct{}),
	}
	t.cur = r
	t.mu.Unlock()

	t.sink.AppendExecution(record.ExecutionRecord{
		Timestamp: r.started,
		Event:     record.ExecutionStart,
		RunID:     r.id,
		File:      r.file,
		Language:  t.Language,
	})
	return r.id
}

// Attach binds cmd's output streams to the current run's accumulators and
// starts it. Every chunk of stdout and stderr data is appended; there is no
// size cap. A spawn failure is folded into the run as a finished execution
// with exit code -1, never an error for the tracker itself.
func (t *Tracker) Attach(cmd *exec.Cmd) error {
	t.mu.Lock()
	r := t.cur
	if r == nil || r.state != Running {
		t.mu.Unlock()
		return nil
	}
	r.cmd = cmd
	t.mu.Unlock()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.finishRun(r, -1, err.Error(), Completed)
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.finishRun(r, -1, err.Error(), Completed)
		return err
	}
	if err := cmd.Start(); err != nil {
		t.log.Warn().Err(err).Str("file", r.file).Msg("process spawn failed")
		t.finishRun(r, -1, err.Error(), Completed)
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go t.drain(r, &r.stdout, stdout, &wg)
	go t.drain(r, &r.stderr, stderr, &wg)

	go func() {
		wg.Wait()
		err := cmd.Wait()
		code := 0
		msg := ""
		if err != nil {
			code = -1
			if exit, ok := err.(*exec.ExitError); ok {
				code = exit.ExitCode()
			} else {
				msg = err.Error()
			}
		}
		t.finishRun(r, code, msg, Completed)
	}()
	return nil
}

func (t *Tracker) drain(r *run, buf *bytes.Buffer, src io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	chunk := make([]byte, 4096)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			buf.Write(chunk[:n])
			t.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Finish transitions the current run to Completed, emitting its
// execution_end record and, when the run failed, a derived error record.
// A second invocation for the same run (both an exit and an error signal
// arriving) is a no-op.
func (t *Tracker) Finish(exitCode int, errMsg string) {
	t.mu.Lock()
	r := t.cur
	t.mu.Unlock()
	if r == nil {
		return
	}
	t.finishRun(r, exitCode, errMsg, Completed)
}

// finishRun finishes the specific run r, so a waiter for a superseded run
// can never terminate its successor.
func (t *Tracker) finishRun(r *run, exitCode int, errMsg string, terminal State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.state != Running {
		return
	}
	t.finishLocked(r, exitCode, errMsg, terminal)
}

// finishLocked emits the terminal records for r. Caller holds t.mu and has
// checked r is still Running. The sink never calls back into the tracker.
func (t *Tracker) finishLocked(r *run, exitCode int, errMsg string, terminal State) {
	now := time.Now()
	r.state = terminal
	code := exitCode
	out := r.stdout.String()
	errOut := r.stderr.String()

	t.sink.AppendExecution(record.ExecutionRecord{
		Timestamp:  now,
		Event:      record.ExecutionEnd,
		RunID:      r.id,
		File:       r.file,
		Language:   t.Language,
		Stdout:     out,
		Stderr:     errOut,
		ExitCode:   &code,
		DurationMS: now.Sub(r.started).Milliseconds(),
	})

	errText := errMsg
	if errText == "" {
		errText = errOut
	}
	if exitCode != 0 || errText != "" {
		msg, stack := SplitTrace(errText)
		t.sink.AppendError(record.ErrorRecord{
			Timestamp: now,
			Message:   msg,
			Stack:     stack,
			Code:      readSource(r.file),
			Language:  t.Language,
			Event:     t.Language + "_execution_error",
		})
	}

	close(r.done)
}

// Wait blocks until the current run reaches a terminal state. Returns
// immediately if no run is active.
func (t *Tracker) Wait() {
	t.mu.Lock()
	r := t.cur
	t.mu.Unlock()
	if r == nil {
		return
	}
	<-r.done
}

// CurrentState reports the state of the most recent run, or Idle if none has
// started.
func (t *Tracker) CurrentState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return Idle
	}
	return t.cur.state
}

// SplitTrace splits error text into a message and an optional stack. The
// first line becomes the message; any remaining lines become the stack. For
// single-line input the stack is nil.
func SplitTrace(text string) (string, *string) {
	text = strings.TrimRight(text, "\n")
	i := strings.IndexByte(text, '\n')
	if i < 0 {
		return text, nil
	}
	stack := text[i+1:]
	return text[:i], &stack
}

// readSource snapshots the target file's current contents, best-effort.
func readSource(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
