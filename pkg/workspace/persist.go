package workspace

import (
	"context"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// saveTimeout bounds a single background save.
const saveTimeout = 30 * time.Second

// scheduleSaveLocked persists collection. In sync mode it writes immediately;
// otherwise the write is debounced and runs on a timer.
// CALLER MUST HOLD w.mu
func (w *Workspace) scheduleSaveLocked(collection string) {
	if !w.asyncSave {
		w.write(collection, w.snapshotLocked(collection))
		return
	}

	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	if t := w.saveTimers[collection]; t != nil {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.debounceDuration, func() {
		w.saveMu.Lock()
		if w.saveTimers[collection] == timer {
			delete(w.saveTimers, collection)
		}
		w.saveMu.Unlock()

		w.saveInBackground(collection)
	})
	w.saveTimers[collection] = timer
}

// saveInBackground copies collection under w.mu and writes it after the lock
// is released. writeMu keeps background writes in snapshot order.
func (w *Workspace) saveInBackground(collection string) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	save := w.snapshotLocked(collection)
	w.mu.Unlock()

	w.write(collection, save)
}

// snapshotLocked copies collection and returns the store call that persists
// the copy.
// CALLER MUST HOLD w.mu
func (w *Workspace) snapshotLocked(collection string) func(context.Context, store.Store) error {
	switch collection {
	case store.CollectionHistory:
		snapshot := make([]record.Generation, len(w.history))
		copy(snapshot, w.history)
		return func(ctx context.Context, st store.Store) error { return st.SaveHistory(ctx, snapshot) }
	case store.CollectionFavorites:
		snapshot := make([]record.Favorite, len(w.favorites))
		copy(snapshot, w.favorites)
		return func(ctx context.Context, st store.Store) error { return st.SaveFavorites(ctx, snapshot) }
	case store.BrandKitKey:
		if w.brand == nil {
			return nil
		}
		kit := *w.brand
		return func(ctx context.Context, st store.Store) error { return st.SaveBrandKit(ctx, kit) }
	}
	return nil
}

// write runs save against the store. Errors are logged only.
func (w *Workspace) write(collection string, save func(context.Context, store.Store) error) {
	if w.saveFunc != nil {
		w.saveFunc(collection)
	}
	if w.store == nil || save == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := save(ctx, w.store); err != nil {
		log.Printf("Workspace: Failed to save %s: %v", collection, err)
	}
}

// Flush runs every pending save now.
func (w *Workspace) Flush() {
	w.saveMu.Lock()
	pending := make([]string, 0, len(w.saveTimers))
	for collection, t := range w.saveTimers {
		if t.Stop() {
			pending = append(pending, collection)
		}
		delete(w.saveTimers, collection)
	}
	w.saveMu.Unlock()

	for _, collection := range pending {
		w.saveInBackground(collection)
	}
}
