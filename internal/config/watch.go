package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// addressSettleDelay coalesces the truncate and write of a single save.
const addressSettleDelay = 50 * time.Millisecond

// ReadAddress returns the trimmed contents of an address file. An empty
// file means no target.
func ReadAddress(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read address file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WatchAddress calls onChange with the current contents of path, then again
// every time they change. It runs until ctx is cancelled.
//
// A failed read is logged and the previous address stays in effect.
// Rewrites that leave the address unchanged do not call onChange.
func WatchAddress(ctx context.Context, path string, onChange func(string), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and config management replace the file
	// by rename, which drops a watch on the file itself.
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	current, err := ReadAddress(path)
	if err != nil {
		return err
	}
	logger.Info("watching address file", "path", path, "address", current)
	onChange(current)

	var settle <-chan time.Time

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
			// Atomic saves show up as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settle = time.After(addressSettleDelay)

		case <-settle:
			settle = nil

			address, err := ReadAddress(path)
			if err != nil {
				logger.Error("address reload failed, keeping previous address",
					"path", path, "error", err)
				continue
			}
			if address == current {
				continue
			}

			logger.Info("address file changed", "path", path, "address", address)
			current = address
			onChange(address)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("address watcher error", "path", path, "error", err)
		}
	}
}
