package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes constructs the chi router containing all API endpoints. The trace
// middleware wraps every route when tracing is configured.
func (a *API) Routes(trace func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if trace != nil {
		r.Use(trace)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.Limit(100, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Firmware-facing: authenticated by device API key, not JWT.
		r.Post("/ingest", a.handleIngest)

		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.tokens.Middleware)

			r.Get("/auth/me", a.handleMe)
			r.Post("/auth/register", a.handleRegister)

			r.Post("/ingest/batch", a.handleIngestBatch)
			r.Post("/simulator/sample", a.handleSimulatorSample)

			r.Get("/data/latest", a.handleLatestData)
			r.Get("/data/timeseries", a.handleTimeseries)
			r.Get("/data/export", a.handleExport)

			r.Get("/devices", a.handleListDevices)
			r.Post("/devices", a.handleRegisterDevice)
			r.Get("/devices/{deviceID}/status", a.handleDeviceStatus)

			r.Get("/alerts", a.handleListAlerts)
			r.Get("/alerts/summary", a.handleAlertSummary)
			r.Get("/alerts/{alertID}", a.handleGetAlert)
			r.Post("/alerts/{alertID}/acknowledge", a.handleAcknowledgeAlert)
			r.Post("/alerts/{alertID}/resolve", a.handleResolveAlert)

			r.Get("/factories", a.handleListFactories)
			r.Post("/factories", a.handleCreateFactory)
			r.Get("/factories/{factoryID}", a.handleGetFactory)
			r.Put("/factories/{factoryID}", a.handleUpdateFactory)
			r.Delete("/factories/{factoryID}", a.handleDeleteFactory)
			r.Get("/factories/{factoryID}/dashboard", a.handleFactoryDashboard)

			r.Get("/reports", a.handleListReports)
			r.Get("/reports/{reportType:weekly|monthly|compliance}", a.handleGenerateReport)
			r.Post("/reports/{reportType:weekly|monthly|compliance}", a.handleGenerateReport)
			r.Get("/reports/{reportID}/download", a.handleDownloadReport)
		})
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.DB.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	nats := "disabled"
	if a.store.Bus != nil {
		nats = "disconnected"
		if a.store.Bus.Connected() {
			nats = "connected"
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready", "nats": nats})
}
