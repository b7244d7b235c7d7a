package workspace

import (
	"github.com/dixieflatline76/ProductScene/pkg/crop"
	"github.com/dixieflatline76/ProductScene/pkg/record"
)

// EventType names what changed.
type EventType string

const (
	EventState     EventType = "state"
	EventCrop      EventType = "crop"
	EventHistory   EventType = "history"
	EventFavorites EventType = "favorites"
	EventBrandKit  EventType = "brand_kit"
)

// Event is sent to subscribers after every change.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// EraserState describes the open eraser.
type EraserState struct {
	Active  bool `json:"active"`
	Drawing bool `json:"drawing"`
	Strokes int  `json:"strokes"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
}

// CropState describes the open crop editor.
type CropState struct {
	crop.State
	Region [4]int `json:"region"`
}

// State is a read-only snapshot for the view layer. Images are served
// separately.
type State struct {
	Status         Status       `json:"status"`
	Error          string       `json:"error,omitempty"`
	Prompt         string       `json:"prompt"`
	HasSource      bool         `json:"has_source"`
	SourceMIME     string       `json:"source_mime,omitempty"`
	SourceWidth    int          `json:"source_width,omitempty"`
	SourceHeight   int          `json:"source_height,omitempty"`
	GenerationID   string       `json:"generation_id,omitempty"`
	ResultCount    int          `json:"result_count"`
	SelectedIndex  int          `json:"selected_index"`
	FavoriteFlags  []bool       `json:"favorite_flags,omitempty"`
	VideoRef       string       `json:"video_ref,omitempty"`
	Busy           []string     `json:"busy,omitempty"`
	Crop           *CropState   `json:"crop,omitempty"`
	Eraser         *EraserState `json:"eraser,omitempty"`
	HistoryCount   int          `json:"history_count"`
	FavoriteCount  int          `json:"favorite_count"`
	BrandKitActive bool         `json:"brand_kit_active"`
}

// Subscribe registers fn for every event and returns a function that removes
// it. fn runs on the goroutine that made the change and must not block.
func (w *Workspace) Subscribe(fn func(Event)) func() {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.listenersMu.Lock()
		defer w.listenersMu.Unlock()
		delete(w.listeners, id)
	}
}

func (w *Workspace) publish(t EventType, payload any) {
	w.listenersMu.Lock()
	fns := make([]func(Event), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.listenersMu.Unlock()

	ev := Event{Type: t, Payload: payload}
	for _, fn := range fns {
		fn(ev)
	}
}

// State returns a snapshot of the workspace.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// CALLER MUST HOLD w.mu
func (w *Workspace) stateLocked() State {
	st := State{
		Status:         w.status,
		Error:          w.errMsg,
		Prompt:         w.prompt,
		HasSource:      !w.source.IsZero(),
		SourceMIME:     w.source.MIMEType,
		SourceWidth:    w.sourceSize.X,
		SourceHeight:   w.sourceSize.Y,
		HistoryCount:   len(w.history),
		FavoriteCount:  len(w.favorites),
		BrandKitActive: w.brand != nil && w.brand.Enabled,
	}
	for op := range w.busy {
		st.Busy = append(st.Busy, string(op))
	}
	if g := w.current; g != nil {
		st.GenerationID = g.ID
		st.ResultCount = len(g.Results)
		st.SelectedIndex = g.SelectedIndex
		st.VideoRef = g.VideoRef
		st.FavoriteFlags = make([]bool, len(g.Results))
		for i, img := range g.Results {
			st.FavoriteFlags[i] = w.favoriteIndexLocked(img) >= 0
		}
	}
	if w.crop != nil {
		cs := w.crop.history.State()
		r := crop.RegionFor(cs.Live, w.crop.size)
		st.Crop = &CropState{State: cs, Region: [4]int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()}}
	}
	if w.eraser.Active() {
		es := w.eraserStateLocked()
		st.Eraser = &es
	}
	return st
}

// CALLER MUST HOLD w.mu
func (w *Workspace) favoriteIndexLocked(img record.Image) int {
	for i, f := range w.favorites {
		if f.Image.Equal(img) {
			return i
		}
	}
	return -1
}
