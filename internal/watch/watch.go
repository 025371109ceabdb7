// Package watch observes a directory tree and translates file writes into
// edit records, standing in for the document-changed and active-editor-changed
// events an editor host would deliver.
package watch

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/edulog/edulog/internal/exclude"
	"github.com/edulog/edulog/internal/logstore"
	"github.com/edulog/edulog/internal/record"
)

// Watcher feeds document events from the filesystem into a log store.
type Watcher struct {
	Dir     string
	Session record.Session
	Rule    exclude.Rule

	store *logstore.Store
	log   zerolog.Logger

	// active is the base name of the most recently written source file; a
	// change retargets the store so parts are attributed per source file.
	active string
}

// New returns a watcher recording into store.
func New(dir string, sess record.Session, rule exclude.Rule, store *logstore.Store, logger zerolog.Logger) *Watcher {
	return &Watcher{Dir: dir, Session: sess, Rule: rule, store: store, log: logger}
}

// Run starts a recursive fsnotify watcher on the directory and records
// Write/Create events until ctx is cancelled. Event-handling failures are
// logged and skipped; the watcher itself never aborts on a bad file.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Walk the directory tree and add a watcher for every subdirectory.
	if err := filepath.WalkDir(w.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.Rule.Excluded(event.Name, "file") {
				continue
			}
			// A new directory gets watched too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			w.observe(event.Name)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}

// observe records one write to path as a whole-file replace edit, retargeting
// the store first if the active source file changed.
func (w *Watcher) observe(path string) {
	base := filepath.Base(path)
	if base != w.active {
		w.active = base
		w.store.SwitchTarget(w.Session.StudentID, base, w.Session.ID)
		w.log.Debug().Str("file", base).Msg("active file changed")
	}

	text, lines, last := fileText(path)
	var end record.Position
	if lines > 0 {
		end = record.Position{Line: lines - 1, Column: len(last)}
	}
	w.store.AppendEdit(record.EditRecord{
		Timestamp: time.Now(),
		Range:     record.Range{End: end},
		Kind:      record.EditReplace,
		Text:      text,
		LineText:  last,
	})
}

// fileText returns the file's contents, line count and final line,
// best-effort.
func fileText(path string) (string, int, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, ""
	}
	text := string(data)

	var n int
	var last string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		n++
		last = scanner.Text()
	}
	return text, n, strings.TrimRight(last, "\r")
}
