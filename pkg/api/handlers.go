package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dixieflatline76/ProductScene/config"
	"github.com/dixieflatline76/ProductScene/pkg/crop"
	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/mask"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/pkg/workspace"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// statusFor maps workspace errors onto HTTP status codes. Anything unknown
// came from a remote collaborator.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, workspace.ErrIndexOutOfRange),
		errors.Is(err, store.ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrBusy),
		errors.Is(err, workspace.ErrNoSource),
		errors.Is(err, workspace.ErrNoResults),
		errors.Is(err, workspace.ErrCropNotOpen),
		errors.Is(err, mask.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrUnknownPreset),
		errors.Is(err, workspace.ErrNoStrokes),
		errors.Is(err, scene.ErrEmptyPrompt),
		errors.Is(err, imageutil.ErrDecode),
		errors.Is(err, imageutil.ErrUnsupportedType),
		errors.Is(err, record.ErrInvalidBrandKit),
		errors.Is(err, mask.ErrInvalidSize),
		errors.Is(err, crop.ErrInvalidRegion):
		return http.StatusBadRequest
	case errors.Is(err, scene.ErrVideoUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(v); err != nil {
		badRequest(w, "Invalid request body")
		return false
	}
	return true
}

// readUpload accepts an image as a multipart "file" field, a JSON data URL or
// the raw request body.
func readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		return data, header.Header.Get("Content-Type"), err
	case mediaType == "application/json":
		var req struct {
			DataURL string `json:"data_url"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
			return nil, "", err
		}
		img, err := imageutil.DecodeDataURL(req.DataURL)
		return img.Data, img.MIMEType, err
	default:
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		return data, mediaType, err
	}
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"version": config.AppVersion,
	})
}

// handleWebSocket upgrades the connection and streams workspace events.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("API: WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	initial := workspace.Event{Type: workspace.EventState, Payload: s.ws.State()}
	s.clientsMu.Lock()
	s.clients[conn] = true
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(initial)
	s.clientsMu.Unlock()
	if err != nil {
		log.Printf("API: Failed to send initial state: %v", err)
	}

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	for {
		// Clients only send keepalives.
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := readUpload(r)
	if err != nil {
		badRequest(w, "Invalid upload: "+err.Error())
		return
	}
	if err := s.ws.SetSource(r.Context(), data, mimeType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUpload(r)
	if err != nil {
		badRequest(w, "Invalid capture: "+err.Error())
		return
	}
	if err := s.ws.CaptureFrame(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleClearSource(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ClearSource(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.ws.SetPrompt(req.Prompt)
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	prompt, err := s.ws.ApplyPreset(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"prompt": s.ws.RefinePrompt(r.Context())})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": s.ws.Suggestions(r.Context())})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"presets": scene.Presets,
		"aspects": crop.AspectPresets,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	g, err := s.ws.Generate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGenerationView(g))
}

func (s *Server) handleSelectResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ws.SelectResult(req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	ref, err := s.ws.GenerateVideo(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"media_id": ref})
}
