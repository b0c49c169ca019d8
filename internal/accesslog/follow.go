package accesslog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follow tails the access log at path and calls fn for every record appended
// after the call starts. It returns when ctx is cancelled or the watcher
// fails. Log rotation (the file shrinking) restarts the read from the top of
// the new file.
func Follow(ctx context.Context, path string, logger *slog.Logger, fn func(Record)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: rotation replaces the file, and a watch on the
	// old inode would go quiet.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var offset int64
	if st, err := os.Stat(path); err == nil {
		offset = st.Size()
	}
	var partial []byte

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			n, rest, err := drain(path, offset, partial, fn)
			if err != nil {
				logger.Warn("reading appended log data", "path", path, "error", err)
				continue
			}
			offset, partial = n, rest
		}
	}
}

// drain reads everything past offset, feeds complete lines through ParseLine,
// and returns the new offset plus any trailing partial line.
func drain(path string, offset int64, partial []byte, fn func(Record)) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, partial, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return offset, partial, err
	}
	if st.Size() < offset {
		// Rotated or truncated; start over.
		offset = 0
		partial = nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, partial, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return offset, partial, err
	}
	offset += int64(len(data))

	buf := append(partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		if rec, ok := ParseLine(string(buf[:i])); ok {
			fn(rec)
		}
		buf = buf[i+1:]
	}
	return offset, buf, nil
}
