package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// cursorPath returns the sidecar file holding session's ingestion cursor.
func cursorPath(stateDir, session string) string {
	return filepath.Join(stateDir, session+".pos")
}

// readCursor loads the last ingested line count for session. A missing
// cursor file means nothing has been ingested yet, so it reads as 0
// rather than an error.
func readCursor(stateDir, session string) (int, error) {
	raw, err := os.ReadFile(cursorPath(stateDir, session))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("ingest: read cursor: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("ingest: parse cursor: %w", err)
	}
	return n, nil
}

// writeCursor atomically overwrites the cursor file with position, via a
// temp-file-then-rename in the same directory so a crash mid-write
// cannot leave a truncated or corrupt cursor behind.
func writeCursor(stateDir, session string, position int) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("ingest: mkdir state dir: %w", err)
	}

	tmp, err := os.CreateTemp(stateDir, ".cursor-*.tmp")
	if err != nil {
		return fmt.Errorf("ingest: create temp cursor: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.Itoa(position)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ingest: write temp cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ingest: close temp cursor: %w", err)
	}

	if err := os.Rename(tmpName, cursorPath(stateDir, session)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ingest: rename cursor: %w", err)
	}
	return nil
}
