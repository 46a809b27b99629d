package rest

import (
	"net/http"

	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
	"github.com/bwise1/geofence_reminders/util/values"
)

func (api *API) GetState(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	snap, err := api.Deps.Controller.Snapshot()
	if err != nil {
		return respondWithError(err, "unable to read state", values.SystemErr, &tc)
	}

	return &ServerResponse{
		Message:    "State retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       snap.State,
	}
}

func (api *API) GetLogs(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Event log retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Deps.Controller.EventLog().Entries(),
	}
}
