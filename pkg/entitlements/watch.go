package entitlements

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// ReloadDebounce coalesces bursts of file events into one reload.
const ReloadDebounce = 250 * time.Millisecond

// Watch reloads catalog whenever the file at path changes. It watches the
// parent directory so atomic renames by editors and config management are
// seen. A failed reload is logged and the previous configuration is kept.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, catalog *Catalog, path string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Join(ErrWatch, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return errors.Join(ErrWatch, err)
	}

	timer := time.NewTimer(ReloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(ReloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WarnContext(ctx, "entitlements watcher error", logger.Component("entitlements"), logger.Error(err))
		case <-timer.C:
			if err := catalog.Reload(ctx); err != nil {
				log.ErrorContext(ctx, "entitlements reload failed, keeping previous plans",
					logger.Component("entitlements"), logger.Error(err), slog.String("path", path))
				continue
			}
			log.InfoContext(ctx, "entitlements reloaded", logger.Component("entitlements"), slog.String("path", path))
		}
	}
}
