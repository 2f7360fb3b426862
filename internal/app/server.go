package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// Handler returns the HTTP handler serving the health check and the debug
// API. Browser-based debuggers are allowed through CORS.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	router.Use(c.Handler)

	router.HandleFunc("/health", a.healthHandler).Methods(http.MethodGet)
	// CORS pre-flight for every route.
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", a.stateHandler).Methods(http.MethodGet)
	api.HandleFunc("/results", a.resultsHandler).Methods(http.MethodGet)
	api.HandleFunc("/continue", a.continueHandler).Methods(http.MethodPost)
	api.HandleFunc("/step", a.stepHandler).Methods(http.MethodPost)
	api.HandleFunc("/breakpoints/{node}", a.breakpointHandler).Methods(http.MethodPut, http.MethodDelete)
	return router
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to write response.", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

// healthHandler reports liveness together with the engine state.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	a.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  a.engine.State().String(),
	})
}

func nodeJSON(n *workflow.Node) map[string]any {
	if n == nil {
		return nil
	}
	return map[string]any{"id": n.ID, "name": n.Name, "type": n.Type}
}

func (a *App) stateHandler(w http.ResponseWriter, r *http.Request) {
	breakpoints := []string{}
	def := a.Definition()
	for _, id := range a.engine.Breakpoints() {
		name := id
		if def != nil {
			if n, ok := def.NodeByID(id); ok {
				name = n.Name
			}
		}
		breakpoints = append(breakpoints, name)
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"state":       a.engine.State().String(),
		"debug":       a.engine.DebugMode(),
		"paused_node": nodeJSON(a.engine.CurrentPausedNode()),
		"breakpoints": breakpoints,
	})
}

// resultsHandler lists the results of the current or last run in
// definition order.
func (a *App) resultsHandler(w http.ResponseWriter, r *http.Request) {
	def := a.Definition()
	if def == nil {
		a.writeError(w, http.StatusConflict, "no workflow loaded")
		return
	}
	results := a.engine.ExecutionResults()
	out := []map[string]any{}
	for _, n := range def.Nodes {
		res, ok := results[n]
		if !ok {
			continue
		}
		entry := nodeJSON(n)
		entry["success"] = res.Success
		entry["duration_ms"] = res.Duration.Milliseconds()
		entry["output"] = property.DataToGo(res.Output)
		if res.ErrorMessage != "" {
			entry["error"] = res.ErrorMessage
		}
		out = append(out, entry)
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *App) continueHandler(w http.ResponseWriter, r *http.Request) {
	if a.engine.CurrentPausedNode() == nil {
		a.writeError(w, http.StatusConflict, "workflow is not paused")
		return
	}
	a.logger.Info("Continue requested over HTTP.")
	a.debugger.Continue()
	a.writeJSON(w, http.StatusAccepted, map[string]string{"command": "continue"})
}

func (a *App) stepHandler(w http.ResponseWriter, r *http.Request) {
	if a.engine.CurrentPausedNode() == nil {
		a.writeError(w, http.StatusConflict, "workflow is not paused")
		return
	}
	a.logger.Info("Step requested over HTTP.")
	a.debugger.Step()
	a.writeJSON(w, http.StatusAccepted, map[string]string{"command": "step"})
}

func (a *App) breakpointHandler(w http.ResponseWriter, r *http.Request) {
	def := a.Definition()
	if def == nil {
		a.writeError(w, http.StatusConflict, "no workflow loaded")
		return
	}
	name := mux.Vars(r)["node"]
	node, ok := def.NodeByName(name)
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown node '%s'", name))
		return
	}
	on := r.Method == http.MethodPut
	a.debugger.SetBreakpoint(node, on)
	a.writeJSON(w, http.StatusOK, map[string]any{"node": name, "breakpoint": on})
}

// startServer runs the health and debug HTTP server in the background.
func (a *App) startServer(port int) {
	a.logger.Debug("Configuring health check server.")
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	go func() {
		a.logger.Info("🩺 Health check server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) closeServer() error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv == nil {
		a.logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down health check server...")
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed.", "error", err)
		return err
	}
	a.logger.Debug("Health check server shut down gracefully.")
	return nil
}
