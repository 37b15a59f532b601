package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lib/pq"
)

// FileWatcher calls back whenever the dealer export file is rewritten.
// The parent directory is watched so atomic rename-into-place is seen too.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *slog.Logger
}

func NewFileWatcher(path string, logger *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{watcher: w, path: filepath.Clean(path), logger: logger}, nil
}

// Watch blocks until ctx is done or the watcher fails.
func (w *FileWatcher) Watch(ctx context.Context, onChange func()) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("catalog file changed", "path", event.Name, "op", event.Op.String())
			onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog file watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}

// PGNotifier calls back on every NOTIFY sent to a Postgres channel, which
// the ingestion job issues after rewriting the products table.
type PGNotifier struct {
	dsn     string
	channel string
	logger  *slog.Logger
}

func NewPGNotifier(dsn, channel string, logger *slog.Logger) *PGNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGNotifier{dsn: dsn, channel: channel, logger: logger}
}

// Listen blocks until ctx is done.
func (n *PGNotifier) Listen(ctx context.Context, onChange func()) error {
	listener := pq.NewListener(n.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			n.logger.Warn("catalog listener event", "event", int(ev), "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(n.channel); err != nil {
		return fmt.Errorf("listening on %s: %w", n.channel, err)
	}
	n.logger.Info("listening for catalog notifications", "channel", n.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case notification := <-listener.Notify:
			// nil means the connection was re-established and notifications may have been lost
			if notification != nil {
				n.logger.Debug("catalog notification", "channel", notification.Channel, "payload", notification.Extra)
			}
			onChange()
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					n.logger.Warn("catalog listener ping failed", "error", err)
				}
			}()
		}
	}
}
