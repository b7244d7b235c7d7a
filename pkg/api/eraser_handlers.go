package api

import (
	"net/http"

	"github.com/dixieflatline76/ProductScene/pkg/mask"
)

type eraserOpenRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Brush  float64 `json:"brush"`
}

// pointerRequest is one pointer event in display pixels. Type is one of down,
// move, up, leave, touchend, resize or brush.
type pointerRequest struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Brush  float64 `json:"brush"`
}

func (s *Server) handleOpenEraser(w http.ResponseWriter, r *http.Request) {
	var req eraserOpenRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	st, err := s.ws.OpenEraser(mask.Size{W: req.Width, H: req.Height}, req.Brush)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEraserPointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var err error
	switch req.Type {
	case "down":
		err = s.ws.EraserDown(req.X, req.Y)
	case "move":
		err = s.ws.EraserMove(req.X, req.Y)
	case "up":
		err = s.ws.EraserUp()
	case "leave":
		err = s.ws.EraserLeave()
	case "touchend":
		err = s.ws.EraserTouchEnd()
	case "resize":
		err = s.ws.ResizeEraser(mask.Size{W: req.Width, H: req.Height})
	case "brush":
		err = s.ws.SetEraserBrush(req.Brush)
	default:
		badRequest(w, "Unknown pointer event "+req.Type)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyEraser(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ws.ApplyEraser(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleEraserPreview(w http.ResponseWriter, r *http.Request) {
	img, err := s.ws.EraserPreview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	serveImage(w, r, img)
}

func (s *Server) handleCancelEraser(w http.ResponseWriter, r *http.Request) {
	s.ws.CancelEraser()
	writeJSON(w, http.StatusOK, s.ws.State())
}
