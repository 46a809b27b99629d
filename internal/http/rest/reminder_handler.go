package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/store"
	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
	"github.com/bwise1/geofence_reminders/util/values"
	"github.com/go-chi/chi/v5"
)

const (
	defaultOutlineSegments = 64
	maxOutlineSegments     = 720
)

func (api *API) ReminderRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetReminders))
	mux.Method(http.MethodPost, "/", Handler(api.CreateReminder))
	mux.Method(http.MethodDelete, "/{id}", Handler(api.DeleteReminder))
	mux.Method(http.MethodGet, "/{id}/outline", Handler(api.GetReminderOutline))
	return mux
}

func (api *API) GetReminders(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Reminders retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Deps.Controller.List().Reminders(),
	}
}

func (api *API) CreateReminder(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.ReminderRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	reminder, err := api.Deps.Controller.SaveReminder(r.Context(), req.Location(), req.RadiusOrDefault(), req.Note)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			return respondWithError(err, "a reminder already exists for this location", values.Conflict, &tc)
		}
		return respondWithError(err, "failed to save reminder", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Reminder created successfully",
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       reminder,
	}
}

func (api *API) DeleteReminder(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	id := chi.URLParam(r, "id")
	if !api.Deps.Controller.DeleteReminder(r.Context(), id) {
		return respondWithError(nil, "reminder not found", values.NotFound, &tc)
	}

	return &ServerResponse{
		Message:    "Reminder deleted successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}

type outlineResponse struct {
	ID       string  `json:"id"`
	Radius   float64 `json:"radius"`
	Segments int     `json:"segments"`
	Polyline string  `json:"polyline"`
}

// GetReminderOutline returns the geofence circle as an encoded polyline for
// map overlays. Query Params: ?segments=...
func (api *API) GetReminderOutline(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	segments := defaultOutlineSegments
	if raw := r.URL.Query().Get("segments"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 3 || n > maxOutlineSegments {
			return respondWithError(err, "segments must be between 3 and 720", values.BadRequestBody, &tc)
		}
		segments = n
	}

	reminder, ok := api.Deps.Controller.List().Find(chi.URLParam(r, "id"))
	if !ok {
		return respondWithError(nil, "reminder not found", values.NotFound, &tc)
	}
	if err := reminder.ValidateGeometry(); err != nil {
		return respondWithError(err, "reminder has no valid geofence", values.Unprocessable, &tc)
	}

	ring := util.CircleOutline(reminder.Latitude, reminder.Longitude, reminder.Radius, segments)

	return &ServerResponse{
		Message:    "Outline generated successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data: outlineResponse{
			ID:       reminder.ID,
			Radius:   reminder.Radius,
			Segments: segments,
			Polyline: util.EncodePolyline(ring),
		},
	}
}
