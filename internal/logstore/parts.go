package logstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// PartSizeLimit is the size at which a log-file part is considered full and
// subsequent writes roll over to the next part number.
const PartSizeLimit = 1 << 20 // 1,048,576 bytes

// PartPath returns the path of part n for the given target triple.
// Naming: {studentId}_{sourceBase}_{sessionId}_part{N}.json, N from 1.
func PartPath(dir, studentID, fileBase, sessionID string, n int) string {
	name := fmt.Sprintf("%s_%s_%s_part%d.json", studentID, fileBase, sessionID, n)
	return filepath.Join(dir, name)
}

// activePart scans existing parts in ascending numeric order and returns the
// path of the first part whose size is below PartSizeLimit. If every existing
// part is full, it returns the next unused part number. A part that reaches
// the limit is never written again.
func activePart(dir, studentID, fileBase, sessionID string) string {
	for n := 1; ; n++ {
		path := PartPath(dir, studentID, fileBase, sessionID, n)
		info, err := os.Stat(path)
		if err != nil {
			// Missing (or unreadable) part: treat as the next free slot.
			return path
		}
		if info.Size() < PartSizeLimit {
			return path
		}
	}
}
