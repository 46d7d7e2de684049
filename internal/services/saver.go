package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

// Saver writes store snapshots to a persister. It subscribes to the store,
// marks itself dirty on every persistent change and writes on Flush.
type Saver struct {
	store     *store.Store
	persister storage.Persister
	logger    *log.Logger

	mu          sync.Mutex
	dirty       bool
	flushMu     sync.Mutex // keeps snapshots landing in order
	unsubscribe func()
}

func NewSaver(s *store.Store, p storage.Persister, logger *log.Logger) *Saver {
	if logger == nil {
		logger = log.Discard()
	}
	sv := &Saver{
		store:     s,
		persister: p,
		logger:    logger.WithComponent(log.ComponentSaver),
	}
	sv.unsubscribe = s.Subscribe(func(c store.Change) {
		if c.Persistent {
			sv.mu.Lock()
			sv.dirty = true
			sv.mu.Unlock()
		}
	})
	return sv
}

// Restore loads the last snapshot into the store. A missing or unreadable
// snapshot leaves the seed data in place; a snapshot from a newer format is
// an error so it is never overwritten.
func (sv *Saver) Restore(ctx context.Context) error {
	snap, err := sv.persister.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		sv.logger.Info("No saved state found, starting from seed data")
		return nil
	case errors.Is(err, store.ErrUnsupportedVersion):
		return err
	case err != nil:
		sv.logger.Warn("Saved state unreadable, starting from seed data",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return nil
	}
	if err := sv.store.Restore(*snap); err != nil {
		return err
	}
	// Restoring marks the store dirty; what we just read is already on disk.
	sv.mu.Lock()
	sv.dirty = false
	sv.mu.Unlock()
	return nil
}

// Dirty reports whether there are unsaved changes.
func (sv *Saver) Dirty() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.dirty
}

// Flush writes a snapshot if anything changed since the last write.
func (sv *Saver) Flush(ctx context.Context) error {
	sv.flushMu.Lock()
	defer sv.flushMu.Unlock()

	sv.mu.Lock()
	if !sv.dirty {
		sv.mu.Unlock()
		return nil
	}
	sv.dirty = false
	sv.mu.Unlock()

	snap := sv.store.Snapshot()
	if err := sv.persister.Save(ctx, snap); err != nil {
		sv.mu.Lock()
		sv.dirty = true
		sv.mu.Unlock()
		sv.logger.Error("Failed to save state",
			log.FieldOperation, log.OpSave,
			log.FieldError, err)
		return err
	}
	sv.logger.Debug("State saved",
		log.FieldOperation, log.OpSave,
		log.FieldRows, len(snap.Transactions))
	return nil
}

// Run flushes every interval and once more when ctx is done.
func (sv *Saver) Run(ctx context.Context, interval time.Duration) error {
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				_ = sv.Flush(ctx)
			}
		}
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sv.Flush(shutdownCtx)
}

// Close stops tracking store changes.
func (sv *Saver) Close() {
	if sv.unsubscribe != nil {
		sv.unsubscribe()
	}
}
