package rest

import (
	"net/http"

	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
	"github.com/bwise1/geofence_reminders/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) GeofenceRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetGeofences))
	mux.Method(http.MethodDelete, "/", Handler(api.ClearGeofences))
	return mux
}

func (api *API) GetGeofences(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Monitored regions retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Deps.Monitor.MonitoredRegions(),
	}
}

func (api *API) ClearGeofences(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	if err := api.Deps.Controller.ClearGeofences(); err != nil {
		return respondWithError(err, "unable to clear geofences", values.SystemErr, &tc)
	}

	return &ServerResponse{
		Message:    "Cleared all monitored regions",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}
