// Package api exposes the workspace over HTTP/JSON and pushes every change to
// WebSocket subscribers.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dixieflatline76/ProductScene/config"
	"github.com/dixieflatline76/ProductScene/pkg/workspace"
	"github.com/dixieflatline76/ProductScene/util/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// maxUploadBytes bounds source and brand logo uploads.
const maxUploadBytes = 20 << 20

// writeWait bounds a single WebSocket write.
const writeWait = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
}

// Server represents the studio's REST/WebSocket server.
type Server struct {
	ws         *workspace.Workspace
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	upgrader   websocket.Upgrader
	addr       string

	// WebSocket management
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	unsubscribe func()
}

// NewServer creates a server over ws and subscribes to its events.
func NewServer(ws *workspace.Workspace, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		ws:     ws,
		router: mux.NewRouter(),
		addr:   opts.Addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
	s.setupRoutes()

	cors := handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	s.handler = cors(handlers.LoggingHandler(log.Writer(), s.router))
	s.unsubscribe = ws.Subscribe(s.broadcast)
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods("GET")

	api.HandleFunc("/source", s.handleGetSource).Methods("GET")
	api.HandleFunc("/source", s.handleSetSource).Methods("POST")
	api.HandleFunc("/source", s.handleClearSource).Methods("DELETE")
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")

	api.HandleFunc("/prompt", s.handleSetPrompt).Methods("PUT")
	api.HandleFunc("/prompt/preset", s.handlePreset).Methods("POST")
	api.HandleFunc("/prompt/refine", s.handleRefine).Methods("POST")
	api.HandleFunc("/prompt/suggestions", s.handleSuggestions).Methods("GET")
	api.HandleFunc("/presets", s.handlePresets).Methods("GET")

	api.HandleFunc("/crop", s.handleOpenCrop).Methods("POST")
	api.HandleFunc("/crop", s.handleObserveCrop).Methods("PUT")
	api.HandleFunc("/crop", s.handleCancelCrop).Methods("DELETE")
	api.HandleFunc("/crop/undo", s.handleUndoCrop).Methods("POST")
	api.HandleFunc("/crop/redo", s.handleRedoCrop).Methods("POST")
	api.HandleFunc("/crop/confirm", s.handleConfirmCrop).Methods("POST")
	api.HandleFunc("/crop/suggest", s.handleSuggestCrop).Methods("GET")

	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/results/selected", s.handleSelectResult).Methods("PUT")
	api.HandleFunc("/results/{index:[0-9]+}", s.handleResultImage).Methods("GET")

	api.HandleFunc("/favorites", s.handleListFavorites).Methods("GET")
	api.HandleFunc("/favorites", s.handleToggleFavorite).Methods("POST")
	api.HandleFunc("/favorites/{id}", s.handleRemoveFavorite).Methods("DELETE")
	api.HandleFunc("/favorites/{id}/image", s.handleFavoriteImage).Methods("GET")

	api.HandleFunc("/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/history", s.handleClearHistory).Methods("DELETE")
	api.HandleFunc("/history/{id}", s.handleDeleteHistory).Methods("DELETE")
	api.HandleFunc("/history/{id}/reuse", s.handleReuseHistory).Methods("POST")
	api.HandleFunc("/history/{id}/source", s.handleHistorySource).Methods("GET")
	api.HandleFunc("/history/{id}/results/{index:[0-9]+}", s.handleHistoryResult).Methods("GET")

	api.HandleFunc("/eraser", s.handleOpenEraser).Methods("POST")
	api.HandleFunc("/eraser", s.handleCancelEraser).Methods("DELETE")
	api.HandleFunc("/eraser/pointer", s.handleEraserPointer).Methods("POST")
	api.HandleFunc("/eraser/apply", s.handleApplyEraser).Methods("POST")
	api.HandleFunc("/eraser/mask", s.handleEraserPreview).Methods("GET")

	api.HandleFunc("/video", s.handleVideo).Methods("POST")
	api.HandleFunc("/media/{id}", s.handleMedia).Methods("GET")

	api.HandleFunc("/brandkit", s.handleGetBrandKit).Methods("GET")
	api.HandleFunc("/brandkit", s.handlePutBrandKit).Methods("PUT")
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the server. It blocks until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Printf("API: listening on %s (version %s)", s.addr, config.AppVersion)
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and closes every WebSocket client.
func (s *Server) Stop(ctx context.Context) error {
	s.unsubscribe()

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// broadcast sends a workspace event to every connected client.
func (s *Server) broadcast(ev workspace.Event) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client := range s.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(ev); err != nil {
			log.Printf("API: Failed to broadcast to client: %v", err)
			client.Close()
			delete(s.clients, client)
		}
	}
}
