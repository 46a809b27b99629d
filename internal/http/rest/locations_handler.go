package rest

import (
	"net/http"

	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
	"github.com/bwise1/geofence_reminders/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) LocationRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetLocations))
	mux.Method(http.MethodPost, "/refresh", Handler(api.RefreshLocations))
	return mux
}

type locationsResponse struct {
	Locations interface{} `json:"locations"`
	IsOffline bool        `json:"is_offline"`
}

func (api *API) GetLocations(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	snap, err := api.Deps.Controller.Snapshot()
	if err != nil {
		return respondWithError(err, "unable to read locations", values.SystemErr, &tc)
	}

	return &ServerResponse{
		Message:    "Locations retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       locationsResponse{Locations: snap.Locations, IsOffline: snap.IsOffline},
	}
}

// RefreshLocations fetches points of interest again. A failed fetch is not an
// error for the caller: the previous list is returned with is_offline set.
func (api *API) RefreshLocations(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	fetchErr := api.Deps.Controller.FetchLocations(r.Context())

	snap, err := api.Deps.Controller.Snapshot()
	if err != nil {
		return respondWithError(err, "unable to read locations", values.SystemErr, &tc)
	}

	message := "Locations refreshed successfully"
	if fetchErr != nil {
		message = "Network fetch failed: Offline mode"
	}

	return &ServerResponse{
		Message:    message,
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       locationsResponse{Locations: snap.Locations, IsOffline: snap.IsOffline},
	}
}
