package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/geofence_reminders/config"
	deps "github.com/bwise1/geofence_reminders/internal/debs"
	"github.com/bwise1/geofence_reminders/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultIdleTimeout  = time.Minute
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 45 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()

	// Probes, scrapers and websocket clients do not send tracing headers.
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, []byte(`{"status":"ok"}`), http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", api.Deps.WebSocket.HandleConnections)

	mux.Group(func(r chi.Router) {
		r.Use(RequestTracing)
		r.Method(http.MethodGet, "/state", Handler(api.GetState))
		r.Method(http.MethodGet, "/logs", Handler(api.GetLogs))
		r.Mount("/locations", api.LocationRoutes())
		r.Mount("/reminders", api.ReminderRoutes())
		r.Mount("/geofences", api.GeofenceRoutes())
		r.Mount("/device", api.DeviceRoutes())
	})

	return mux
}

func (api *API) Shutdown(ctx context.Context) error {
	if api.Server == nil {
		return nil
	}
	return api.Server.Shutdown(ctx)
}
