package api

import (
	"net/http"
	"strconv"

	"github.com/dixieflatline76/ProductScene/pkg/crop"
)

// cropRequest is one widget update.
type cropRequest struct {
	crop.Snapshot
	Origin string `json:"origin"`
}

type cropStepResponse struct {
	State   crop.State `json:"state"`
	Changed bool       `json:"changed"`
}

func (s *Server) handleOpenCrop(w http.ResponseWriter, r *http.Request) {
	st, err := s.ws.OpenCrop()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleObserveCrop(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin := crop.UserEdit
	if req.Origin == crop.Programmatic.String() {
		origin = crop.Programmatic
	}
	st, err := s.ws.ObserveCrop(req.Snapshot, origin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUndoCrop(w http.ResponseWriter, r *http.Request) {
	st, changed, err := s.ws.UndoCrop()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cropStepResponse{State: st, Changed: changed})
}

func (s *Server) handleRedoCrop(w http.ResponseWriter, r *http.Request) {
	st, changed, err := s.ws.RedoCrop()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cropStepResponse{State: st, Changed: changed})
}

func (s *Server) handleSuggestCrop(w http.ResponseWriter, r *http.Request) {
	aspect := 0.0
	if v := r.URL.Query().Get("aspect"); v != "" {
		a, err := strconv.ParseFloat(v, 64)
		if err != nil || a < 0 {
			badRequest(w, "Invalid aspect")
			return
		}
		aspect = a
	}
	st, err := s.ws.SuggestCrop(r.Context(), aspect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleConfirmCrop(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ConfirmCrop(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleCancelCrop(w http.ResponseWriter, r *http.Request) {
	s.ws.CancelCrop()
	writeJSON(w, http.StatusOK, s.ws.State())
}
