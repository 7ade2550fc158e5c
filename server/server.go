package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"gridmdp/reinforcement"
	"gridmdp/server/cell_views"
	"gridmdp/server/fastview"
	"gridmdp/server/root_view"

	"github.com/gorilla/mux"
)

const shutdownWait = 5 * time.Second

// Server serves a single page, to a single client, over a single websocket.
// The ele-update channel is consumed by one client at a time; further clients
// are turned away until the current one disconnects.
type Server struct {
	addr     string
	solver   *reinforcement.ValueIteration
	rootView *root_view.RootView
	router   *mux.Router
	// Held for the lifetime of the websocket client.
	clientMu sync.Mutex
}

// NewServer initializes all of the views and returns a server. The index page
// renders the solver's current state; progress drives the live updates.
func NewServer(
	ctx context.Context,
	addr string,
	solver *reinforcement.ValueIteration,
	progress <-chan reinforcement.Progress,
) (*Server, error) {
	rootView, err := root_view.NewRootView(ctx, progress)
	if err != nil {
		return nil, err
	}

	server := &Server{
		addr:     addr,
		solver:   solver,
		rootView: rootView,
		router:   mux.NewRouter(),
	}
	server.router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket)
	server.router.HandleFunc("/convergence", server.serveConvergence).Methods(http.MethodGet)
	return server, nil
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on http://%s", server.addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// serveWebsocket publishes view updates to the client via websocket.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	if !server.clientMu.TryLock() {
		http.Error(w, "a client is already connected", http.StatusConflict)
		return
	}
	defer server.clientMu.Unlock()

	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		log.Printf("[server] %v", err)
		return
	}
	if err := cli.Sync(); err != nil {
		log.Printf("[server] %v", err)
	}
}

// Serve the index.html main page, rendered from the solver's current state.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	board := cell_views.Convert(server.solver.Progress())
	if err := renderTemplate(w, server.rootView, board); err != nil {
		log.Printf("[server] render index: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveConvergence(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderConvergence(w, server.solver.Residuals()); err != nil {
		log.Printf("[server] render convergence: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) error {
	t := template.New("index.html")
	tname, err := vc.Parse(t)
	if err != nil {
		return err
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return err
	}
	return t.Execute(w, data)
}
