package ui

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shrimp/app"
)

// App is the HTTP surface of the prediction service.
type App struct {
	router     *chi.Mux
	prediction *app.PredictionService
	upload     *app.UploadService
	history    *app.HistoryService
}

// NewApp creates a new HTTP application
func NewApp(prediction *app.PredictionService, upload *app.UploadService, history *app.HistoryService) *App {
	a := &App{
		router:     chi.NewRouter(),
		prediction: prediction,
		upload:     upload,
		history:    history,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(middleware.Timeout(120 * time.Second))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	a.router.Get("/api/prediction", a.handlePredict)
	a.router.Get("/api/prediction/export", a.handleExport)
	a.router.Get("/api/prediction/bounds", a.handleBounds)
	a.router.Get("/api/history", a.handleHistory)
	a.router.Get("/api/clients", a.handleClients)
	a.router.Post("/api/upload/{source}", a.handleUpload)
}

// Start runs the HTTP server on the given port, blocking until it exits.
func (a *App) Start(port string) error {
	addr := fmt.Sprintf(":%s", port)
	log.Printf("[ui] listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Router exposes the mux, mainly for tests.
func (a *App) Router() http.Handler {
	return a.router
}
