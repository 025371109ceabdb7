package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/config"
	"github.com/edulog/edulog/internal/record"
)

// executeCommand runs root with args, capturing combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

func writePart(t *testing.T, dir, name string, snap record.Snapshot) {
	t.Helper()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatsCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	logDir := t.TempDir()

	code := 1
	snap := record.NewSnapshot("alice", "s1", "hw1.py")
	snap.EditLog = []record.Entry{
		{Key: &record.KeyRecord{Timestamp: time.Now(), Key: "a"}},
	}
	snap.ExecutionLog = []record.ExecutionRecord{
		{Timestamp: time.Now(), Event: record.ExecutionEnd, File: "hw1.py", ExitCode: &code, DurationMS: 42},
	}
	writePart(t, logDir, "alice_hw1.py_s1_part1.json", snap)

	out, err := executeCommand(rootCmd, "stats", logDir)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"alice", "Keystrokes:  1", "Executions:  1 (1 failed)"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestViewPlain(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	logDir := t.TempDir()

	stack := "  at line 3"
	snap := record.NewSnapshot("alice", "s1", "hw1.py")
	snap.ErrorLog = []record.ErrorRecord{
		{Timestamp: time.Now(), Message: "SyntaxError: bad token", Stack: &stack},
	}
	path := filepath.Join(logDir, "alice_hw1.py_s1_part1.json")
	writePart(t, logDir, "alice_hw1.py_s1_part1.json", snap)

	out, err := executeCommand(rootCmd, "view", "--plain", path)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !strings.Contains(out, "SyntaxError: bad token") {
		t.Errorf("view output missing error message:\n%s", out)
	}
	if !strings.Contains(out, "at line 3") {
		t.Errorf("view output missing stack line:\n%s", out)
	}
}

func TestViewMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := executeCommand(rootCmd, "view", "--plain", "/no/such/part.json")
	if err == nil || !strings.Contains(err.Error(), "file not found") {
		t.Fatalf("expected file-not-found error, got %v", err)
	}
}

func TestRuntermReportsSpawnFailure(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	logDir := t.TempDir()

	cfgDir := filepath.Join(home, ".config", "edulog")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(config.Config{
		PythonPath: filepath.Join(home, "no-such-python"),
		LogDir:     logDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(t.TempDir(), "hw.py")
	if err := os.WriteFile(file, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(rootCmd, "runterm", file)
	if err != nil {
		t.Fatalf("runterm: %v", err)
	}
	if !strings.Contains(out, "failed to run hw.py") {
		t.Errorf("spawn failure not reported:\n%s", out)
	}

	// The run is still recorded with exit code -1.
	parts, err := filepath.Glob(filepath.Join(logDir, "*_part1.json"))
	if err != nil || len(parts) != 1 {
		t.Fatalf("expected one part in %s, got %v (%v)", logDir, parts, err)
	}
	data, err := os.ReadFile(parts[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"exitCode":-1`) {
		t.Errorf("spawn failure not recorded with exit code -1: %s", data)
	}
}

func TestSetidPersists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, err := executeCommand(rootCmd, "setid", "zoe"); err != nil {
		t.Fatalf("setid: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, ".config", "edulog", "config.json"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), `"student_id": "zoe"`) {
		t.Errorf("student id not persisted: %s", data)
	}
}
