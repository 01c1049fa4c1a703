package ingest

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch supplements the poll-driven `capture` CLI verb with an event-
// driven mode: it watches dir for writes to session's transcript file and
// runs CaptureNew each time one is observed, until ctx is cancelled. Each
// result (including ones with zero captured lines, e.g. a write that only
// flushed without appending content) is passed to onCapture.
//
// Watch returns when ctx is cancelled or the watcher itself fails to
// start; a capture error for a single event is logged and does not stop
// the watch loop, matching the rest of the engine's policy that a single
// failed operation never aborts an ongoing one.
func (i *Ingestor) Watch(ctx context.Context, session, dir string, onCapture func(CaptureResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := session + ".jsonl"
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == "" || !(event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			if baseName(event.Name) != target {
				continue
			}
			res, err := i.CaptureNew(ctx, session, event.Name)
			if err != nil {
				slog.Error("ingest: watch capture failed", "session", session, "error", err)
				continue
			}
			onCapture(res)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("ingest: watcher error", "error", err)
		}
	}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
