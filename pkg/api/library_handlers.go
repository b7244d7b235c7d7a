package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/gorilla/mux"
)

// maxThumbnail bounds the ?thumb= size.
const maxThumbnail = 2048

// generationView is a history entry without image bytes.
type generationView struct {
	ID            string    `json:"id"`
	Prompt        string    `json:"prompt"`
	CreatedAt     time.Time `json:"created_at"`
	ResultCount   int       `json:"result_count"`
	SelectedIndex int       `json:"selected_index"`
	VideoRef      string    `json:"video_ref,omitempty"`
}

func newGenerationView(g record.Generation) generationView {
	return generationView{
		ID:            g.ID,
		Prompt:        g.Prompt,
		CreatedAt:     g.CreatedAt,
		ResultCount:   len(g.Results),
		SelectedIndex: g.SelectedIndex,
		VideoRef:      g.VideoRef,
	}
}

// favoriteView is a favorite without image bytes.
type favoriteView struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	MIMEType  string    `json:"mime_type"`
	VideoRef  string    `json:"video_ref,omitempty"`
}

// brandKitBody carries the logo as a data URL.
type brandKitBody struct {
	Enabled   bool     `json:"enabled"`
	Logo      string   `json:"logo,omitempty"`
	Palette   []string `json:"palette"`
	Voice     string   `json:"voice"`
	FontStyle string   `json:"font_style"`
}

// serveImage writes img, scaled down when ?thumb=N is given.
func serveImage(w http.ResponseWriter, r *http.Request, img record.Image) {
	if v := r.URL.Query().Get("thumb"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxThumbnail {
			badRequest(w, "Invalid thumb size")
			return
		}
		thumb, err := imageutil.Thumbnail(r.Context(), img, n)
		if err != nil {
			writeError(w, err)
			return
		}
		img = thumb
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(img.Data)
}

func indexVar(r *http.Request) int {
	// The route pattern only admits digits.
	i, _ := strconv.Atoi(mux.Vars(r)["index"])
	return i
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	img, err := s.ws.Source()
	if err != nil {
		writeError(w, err)
		return
	}
	serveImage(w, r, img)
}

func (s *Server) handleResultImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.ws.Result(indexVar(r))
	if err != nil {
		writeError(w, err)
		return
	}
	serveImage(w, r, img)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs := s.ws.Favorites()
	out := make([]favoriteView, 0, len(favs))
	for _, f := range favs {
		out = append(out, favoriteView{
			ID:        f.ID,
			Prompt:    f.Prompt,
			CreatedAt: f.CreatedAt,
			MIMEType:  f.Image.MIMEType,
			VideoRef:  f.VideoRef,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	added, err := s.ws.ToggleFavorite(req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": added})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.RemoveFavorite(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavoriteImage(w http.ResponseWriter, r *http.Request) {
	fav, err := s.ws.Favorite(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	serveImage(w, r, fav.Image)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	history := s.ws.History()
	out := make([]generationView, 0, len(history))
	for _, g := range history {
		out = append(out, newGenerationView(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.ws.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.DeleteHistory(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReuseHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ReuseHistory(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleHistorySource(w http.ResponseWriter, r *http.Request) {
	g, err := s.ws.HistoryEntry(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	serveImage(w, r, g.Source)
}

func (s *Server) handleHistoryResult(w http.ResponseWriter, r *http.Request) {
	g, err := s.ws.HistoryEntry(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	i := indexVar(r)
	if i >= len(g.Results) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "result index out of range"})
		return
	}
	serveImage(w, r, g.Results[i])
}

// handleMedia streams a saved clip. ServeContent answers range requests so
// video elements can seek.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, contentType, err := s.ws.Media(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleGetBrandKit(w http.ResponseWriter, r *http.Request) {
	kit := s.ws.BrandKit()
	if kit == nil {
		writeJSON(w, http.StatusOK, brandKitBody{Palette: []string{}})
		return
	}
	body := brandKitBody{
		Enabled:   kit.Enabled,
		Palette:   kit.Palette,
		Voice:     kit.Voice,
		FontStyle: kit.FontStyle,
	}
	if kit.Logo != nil {
		body.Logo = imageutil.EncodeDataURL(*kit.Logo)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePutBrandKit(w http.ResponseWriter, r *http.Request) {
	var body brandKitBody
	if !decodeBody(w, r, &body) {
		return
	}
	kit := record.BrandKit{
		Enabled:   body.Enabled,
		Palette:   body.Palette,
		Voice:     body.Voice,
		FontStyle: body.FontStyle,
	}
	if body.Logo != "" {
		logo, err := imageutil.DecodeDataURL(body.Logo)
		if err != nil {
			writeError(w, err)
			return
		}
		kit.Logo = &logo
	}
	if err := s.ws.UpdateBrandKit(kit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}
