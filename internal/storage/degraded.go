package storage

import "log/slog"

// Guard decorates a Store so every operation is total from the caller's
// perspective. With no store configured the guarded operations return their
// fallback immediately; with a store, failures are logged and downgraded to
// the fallback. Silently dropping analytics data when the store is down is
// an intentional trade: the hosting site stays available.
type Guard struct {
	store  Store
	logger *slog.Logger
}

// NewGuard wraps a store. Pass a nil store to run in degraded mode.
func NewGuard(store Store, logger *slog.Logger) *Guard {
	return &Guard{store: store, logger: logger}
}

// Configured reports whether a durable store backs this guard.
func (g *Guard) Configured() bool {
	return g.store != nil
}

// Store exposes the underlying store, nil when degraded. Callers that need
// lifecycle control (closing connections on shutdown) use this.
func (g *Guard) Store() Store {
	return g.store
}

// RunOrFallback executes op against the guarded store. It returns fallback
// without invoking op when no store is configured, and returns fallback after
// logging when op fails.
func RunOrFallback[T any](g *Guard, fallback T, op func(Store) (T, error)) T {
	if g.store == nil {
		return fallback
	}
	result, err := op(g.store)
	if err != nil {
		g.logger.Warn("Store operation failed, using fallback", slog.Any("error", err))
		return fallback
	}
	return result
}

// Do executes a write against the guarded store, absorbing unconfigured and
// failing stores the same way RunOrFallback does.
func Do(g *Guard, op func(Store) error) {
	if g.store == nil {
		return
	}
	if err := op(g.store); err != nil {
		g.logger.Warn("Store operation failed, dropping write", slog.Any("error", err))
	}
}
