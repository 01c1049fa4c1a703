// Package ingest resumably diffs a line-oriented transcript file into
// the message store, tracking progress with a per-session cursor file
// so repeated runs capture exactly the newly appended lines.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// ErrTranscriptMissing is returned in CaptureResult.Error's text (not as
// a Go error) when no transcript file could be located for a session.
const ErrTranscriptMissing = "Transcript not found"

// CaptureResult is CaptureNew's return shape, serialized verbatim by the
// CLI's capture subcommand.
type CaptureResult struct {
	Captured     int    `json:"captured"`
	LastPosition int    `json:"last_position"`
	Error        string `json:"error,omitempty"`
}

// MessageInserter is the subset of *store.Store the ingestor needs,
// narrowed to ease testing without a real database.
type MessageInserter interface {
	InsertMessage(ctx context.Context, session, role, content string, metadata map[string]string) (int64, error)
}

// Ingestor captures transcript lines into a store. StateDir holds the
// per-session cursor sidecar files; SearchDirs is the set of
// directories walked to locate a `{session}.jsonl` transcript when the
// caller doesn't pass one explicitly.
type Ingestor struct {
	Store      MessageInserter
	StateDir   string
	SearchDirs []string
}

// New builds an Ingestor writing cursors under stateDir and searching
// searchDirs for transcripts by session id.
func New(st MessageInserter, stateDir string, searchDirs []string) *Ingestor {
	return &Ingestor{Store: st, StateDir: stateDir, SearchDirs: searchDirs}
}

// CaptureNew ingests every transcript line not yet seen for session. If
// transcriptPath is empty, the transcript is located by basename search
// across i.SearchDirs. A missing transcript is reported in the result,
// not as a Go error, per §4.5.
func (i *Ingestor) CaptureNew(ctx context.Context, session, transcriptPath string) (CaptureResult, error) {
	path := transcriptPath
	if path == "" {
		found, err := i.locateTranscript(session)
		if err != nil {
			return CaptureResult{}, err
		}
		if found == "" {
			return CaptureResult{Captured: 0, Error: ErrTranscriptMissing}, nil
		}
		path = found
	}

	lastPosition, err := readCursor(i.StateDir, session)
	if err != nil {
		return CaptureResult{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("ingest: open transcript: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	position := lastPosition
	captured := 0
	lineIndex := 0

	for scanner.Scan() {
		if lineIndex < lastPosition {
			lineIndex++
			continue
		}
		line := scanner.Bytes()
		thisLine := lineIndex
		lineIndex++
		position++

		if len(line) == 0 {
			continue
		}
		role, content, ok := parseLine(line)
		if !ok || content == "" {
			continue
		}

		metadata := map[string]string{
			"source": "transcript",
			"line":   strconv.Itoa(thisLine),
		}
		if _, err := i.Store.InsertMessage(ctx, session, role, content, metadata); err != nil {
			return CaptureResult{}, fmt.Errorf("ingest: insert message: %w", err)
		}
		captured++
	}
	if err := scanner.Err(); err != nil {
		return CaptureResult{}, fmt.Errorf("ingest: scan transcript: %w", err)
	}

	if err := writeCursor(i.StateDir, session, position); err != nil {
		return CaptureResult{}, err
	}

	return CaptureResult{Captured: captured, LastPosition: position}, nil
}

// locateTranscript walks i.SearchDirs looking for a file named
// `{session}.jsonl`. Returns "" if none is found.
func (i *Ingestor) locateTranscript(session string) (string, error) {
	target := session + ".jsonl"
	for _, dir := range i.SearchDirs {
		var found string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep searching
			}
			if !d.IsDir() && d.Name() == target {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && err != fs.SkipAll {
			continue
		}
		if found != "" {
			return found, nil
		}
	}
	return "", nil
}
