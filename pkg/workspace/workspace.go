// Package workspace is the studio's single application-state container. Every
// user action maps to one Workspace method, which converts failures into a
// status and message and persists changes as a side effect.
package workspace

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/crop"
	"github.com/dixieflatline76/ProductScene/pkg/mask"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// Status is the generation status shown to the user.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusUploading  Status = "UPLOADING"
	StatusGenerating Status = "GENERATING"
	StatusSuccess    Status = "SUCCESS"
	StatusError      Status = "ERROR"
)

var (
	// ErrBusy is returned when the same kind of operation is already running.
	ErrBusy = errors.New("operation already in progress")
	// ErrNoSource is returned when an action needs a source image.
	ErrNoSource = errors.New("no source image")
	// ErrNoResults is returned when an action needs a generated result.
	ErrNoResults = errors.New("no generated results")
	// ErrIndexOutOfRange is returned for result indexes outside the batch.
	ErrIndexOutOfRange = errors.New("result index out of range")
	// ErrNotFound is returned for unknown history, favorite or media IDs.
	ErrNotFound = errors.New("not found")
	// ErrCropNotOpen is returned for crop actions outside crop mode.
	ErrCropNotOpen = errors.New("crop mode is not open")
	// ErrUnknownPreset is returned for preset names that do not exist.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrNoStrokes is returned when the eraser is applied without strokes.
	ErrNoStrokes = errors.New("nothing to erase")
)

// operation names the long-running actions guarded against overlap.
type operation string

const (
	opUpload   operation = "upload"
	opGenerate operation = "generate"
	opInpaint  operation = "inpaint"
	opVideo    operation = "video"
	opCrop     operation = "crop"
)

// Options configures a Workspace.
type Options struct {
	// CropQuietPeriod is the crop history debounce.
	CropQuietPeriod time.Duration
	// SaveDebounce delays asynchronous saves so bursts of changes are written
	// once.
	SaveDebounce time.Duration
	// SyncSave writes to the store before each mutating call returns.
	SyncSave bool
}

// Workspace holds the source image, prompt, current batch, history,
// favorites, brand kit and the open crop and eraser modes.
type Workspace struct {
	mu sync.Mutex

	store store.Store
	media *store.MediaStore
	orch  *scene.Orchestrator
	video *scene.VideoRenderer

	source     record.Image
	sourceSize image.Point
	prompt     string
	status     Status
	errMsg     string
	current    *record.Generation
	history    []record.Generation
	favorites  []record.Favorite
	brand      *record.BrandKit
	busy       map[operation]bool

	crop   *cropSession
	eraser *mask.Eraser
	target eraserTarget

	cropQuiet time.Duration

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextID      int

	asyncSave        bool
	debounceDuration time.Duration
	saveMu           sync.Mutex
	writeMu          sync.Mutex
	saveTimers       map[string]*time.Timer

	// Testing hook
	saveFunc func(collection string)

	now func() time.Time
}

// New returns an empty workspace. Call Load to restore persisted state.
func New(st store.Store, media *store.MediaStore, orch *scene.Orchestrator, video *scene.VideoRenderer, opts Options) *Workspace {
	if opts.CropQuietPeriod <= 0 {
		opts.CropQuietPeriod = crop.DefaultQuietPeriod
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = 500 * time.Millisecond
	}
	return &Workspace{
		store:            st,
		media:            media,
		orch:             orch,
		video:            video,
		status:           StatusIdle,
		busy:             make(map[operation]bool),
		eraser:           mask.NewEraser(),
		cropQuiet:        opts.CropQuietPeriod,
		listeners:        make(map[int]func(Event)),
		asyncSave:        !opts.SyncSave,
		debounceDuration: opts.SaveDebounce,
		saveTimers:       make(map[string]*time.Timer),
		now:              time.Now,
	}
}

// Load restores history, favorites and the brand kit. Storage errors are
// logged and the workspace continues with what it has.
func (w *Workspace) Load(ctx context.Context) {
	if w.store == nil {
		return
	}
	history, err := w.store.LoadHistory(ctx)
	if err != nil {
		log.Printf("Workspace: Failed to load history: %v", err)
	}
	favorites, err := w.store.LoadFavorites(ctx)
	if err != nil {
		log.Printf("Workspace: Failed to load favorites: %v", err)
	}
	kit, err := w.store.LoadBrandKit(ctx)
	if err != nil {
		log.Printf("Workspace: Failed to load brand kit: %v", err)
	}

	w.mu.Lock()
	if history != nil {
		w.history = history
	}
	if favorites != nil {
		w.favorites = favorites
	}
	if kit != nil {
		w.brand = kit
	}
	known := w.mediaRefsLocked()
	w.mu.Unlock()

	if w.media != nil {
		w.media.CleanupOrphans(known)
	}
	log.Printf("Workspace: Loaded %d history entries and %d favorites", len(history), len(favorites))
	w.publish(EventState, w.State())
}

// Close flushes pending saves and leaves crop mode.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.crop != nil {
		w.crop.history.Close()
		w.crop = nil
	}
	w.mu.Unlock()
	w.Flush()
}

// begin marks op as running or returns ErrBusy.
// CALLER MUST HOLD w.mu
func (w *Workspace) beginLocked(op operation) error {
	if w.busy[op] {
		return ErrBusy
	}
	w.busy[op] = true
	return nil
}

// CALLER MUST HOLD w.mu
func (w *Workspace) endLocked(op operation) {
	delete(w.busy, op)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) failLocked(err error) {
	w.status = StatusError
	w.errMsg = err.Error()
}

// CALLER MUST HOLD w.mu
func (w *Workspace) clearErrorLocked() {
	w.errMsg = ""
	if w.status == StatusError {
		w.status = StatusIdle
		if w.current != nil {
			w.status = StatusSuccess
		}
	}
}

// unlockAndPublish snapshots the state, releases w.mu and notifies
// subscribers.
// CALLER MUST HOLD w.mu
func (w *Workspace) unlockAndPublish(types ...EventType) {
	st := w.stateLocked()
	w.mu.Unlock()
	for _, t := range types {
		w.publish(t, st)
	}
}

// mediaRefsLocked returns every media ID referenced by history or favorites.
// CALLER MUST HOLD w.mu
func (w *Workspace) mediaRefsLocked() map[string]bool {
	known := make(map[string]bool)
	for _, g := range w.history {
		if g.VideoRef != "" {
			known[g.VideoRef] = true
		}
	}
	for _, f := range w.favorites {
		if f.VideoRef != "" {
			known[f.VideoRef] = true
		}
	}
	if w.current != nil && w.current.VideoRef != "" {
		known[w.current.VideoRef] = true
	}
	return known
}
