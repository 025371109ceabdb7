package logstore_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"

	"github.com/edulog/edulog/internal/logstore"
	"github.com/edulog/edulog/internal/record"
)

// generateTime produces an arbitrary time.Time value.
// Truncated to second precision to match JSON round-trip fidelity.
func generateTime(t *rapid.T) time.Time {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, "unix_sec")
	return time.Unix(sec, 0).UTC()
}

// Property: after any sequence of appends, the persisted part equals the
// serialization of the full in-memory state — no record loss, no reordering.
func TestPersistedSnapshotMatchesMemory(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		sess := record.NewSession("bob", time.Unix(1_700_000_000, 0))
		store := logstore.New(dir, sess, zerolog.Nop())
		store.SetFileBase("hw1.py")
		store.FlushDelay = time.Hour
		defer store.Close()

		n := rapid.IntRange(0, 40).Draw(rt, "n")
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "kind") {
			case 0:
				store.AppendEdit(record.EditRecord{
					Timestamp: generateTime(rt),
					Kind:      record.EditInsert,
					Text:      rapid.StringN(0, 20, -1).Draw(rt, "text"),
				})
			case 1:
				store.AppendKey(record.KeyRecord{
					Timestamp: generateTime(rt),
					Key:       rapid.StringN(1, 1, -1).Draw(rt, "key"),
				})
			case 2:
				store.AppendError(record.ErrorRecord{
					Timestamp: generateTime(rt),
					Message:   rapid.StringN(1, 40, -1).Draw(rt, "msg"),
				})
			case 3:
				store.AppendExecution(record.ExecutionRecord{
					Timestamp: generateTime(rt),
					Event:     record.ExecutionStart,
					File:      "hw1.py",
				})
			}
		}

		store.FlushNow()

		persisted, err := os.ReadFile(store.ActivePartPath())
		if err != nil {
			rt.Fatalf("reading part: %v", err)
		}
		want, err := json.Marshal(store.Snapshot())
		if err != nil {
			rt.Fatalf("marshal snapshot: %v", err)
		}
		if !bytes.Equal(persisted, want) {
			rt.Fatalf("persisted part diverges from memory:\n%s\n%s", persisted, want)
		}
	})
}
