package runner

import (
	"os/exec"
	"path/filepath"
)

// Exec runs interpreter on filePath as a tracked execution: it starts a fresh
// run, spawns the process with the file's directory as working directory, and
// attaches its output streams. The returned id correlates the run's records.
// Spawn failures are already folded into the run by Attach.
func (t *Tracker) Exec(interpreter, filePath string) string {
	id := t.Start(filePath)
	cmd := exec.Command(interpreter, filePath)
	cmd.Dir = filepath.Dir(filePath)
	_ = t.Attach(cmd)
	return id
}
