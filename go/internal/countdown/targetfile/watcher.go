// Package targetfile re-supplies a countdown target whenever a file changes.
package targetfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Read returns the trimmed contents of path.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read target file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Watch calls onChange with the trimmed contents of path each time the file
// is written or created with a value different from the last one delivered.
// Empty contents are skipped since editors often truncate before writing.
// The parent directory is watched so atomic renames are seen. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, onChange func(raw string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	log.Debug().Str("path", path).Msg("watching target file")

	var last string
	if raw, err := Read(path); err == nil {
		last = raw
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			raw, err := Read(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read target file")
				continue
			}
			if raw == "" || raw == last {
				continue
			}
			last = raw

			log.Info().Str("path", path).Str("target", raw).Msg("target file changed")
			onChange(raw)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("path", path).Msg("target file watcher error")
		}
	}
}
