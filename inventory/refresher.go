package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrEmptyCatalog is returned when a source yields no products. The
// previous snapshot stays in place.
var ErrEmptyCatalog = errors.New("source returned an empty catalog")

// Refresher reloads the catalog from a Source and swaps it into a Store.
type Refresher struct {
	source Source
	store  *Store
	logger *slog.Logger

	mu   sync.Mutex
	kick chan struct{}
}

func NewRefresher(source Source, store *Store, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		source: source,
		store:  store,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
}

// Refresh loads the source once. On failure the current snapshot is kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	products, err := r.source.Load(ctx)
	if err != nil {
		r.logger.Error("catalog refresh failed", "source", r.source.Name(), "error", err)
		return fmt.Errorf("refreshing catalog: %w", err)
	}
	if len(products) == 0 {
		r.logger.Warn("catalog refresh skipped", "source", r.source.Name(), "error", ErrEmptyCatalog)
		return ErrEmptyCatalog
	}

	r.store.Swap(NewSnapshot(r.source.Name(), products))
	r.logger.Info("catalog refreshed",
		"source", r.source.Name(),
		"products", len(products),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Trigger asks a running Run loop to refresh soon. Calls coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run refreshes every interval and on every Trigger until ctx is done.
// A non-positive interval disables the periodic refresh.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-r.kick:
		}
		_ = r.Refresh(ctx)
	}
}
