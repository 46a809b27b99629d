package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/platform"
	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
	"github.com/bwise1/geofence_reminders/util/values"
	"github.com/go-chi/chi/v5"
)

// DeviceRoutes is how the device shell reports what the OS would: location
// fixes and answers to permission prompts.
func (api *API) DeviceRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetDevice))
	mux.Method(http.MethodPost, "/location", Handler(api.ReportLocation))
	mux.Method(http.MethodPost, "/authorization", Handler(api.SetAuthorization))
	mux.Method(http.MethodGet, "/notifications", Handler(api.GetNotifications))
	mux.Method(http.MethodPost, "/notifications/test", Handler(api.TestNotification))
	return mux
}

func (api *API) GetDevice(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Device state retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Deps.Monitor.State(),
	}
}

func (api *API) ReportLocation(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.DeviceLocationRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	err := api.Deps.Monitor.ReportLocation(model.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		if errors.Is(err, platform.ErrNotAuthorized) {
			return respondWithError(err, "location access is not authorized", values.NotAllowed, &tc)
		}
		if errors.Is(err, platform.ErrInvalidLocation) {
			return respondWithError(err, "invalid location", values.BadRequestBody, &tc)
		}
		return respondWithError(err, "unable to report location", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Location reported successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       req,
	}
}

func (api *API) SetAuthorization(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.AuthorizationRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	status, ok := model.ParseAuthorizationStatus(req.Status)
	if !ok {
		return respondWithError(fmt.Errorf("unknown status %q", req.Status), "unknown authorization status", values.BadRequestBody, &tc)
	}

	api.Deps.Monitor.SetAuthorization(status)

	return &ServerResponse{
		Message:    "Authorization updated successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Deps.Monitor.State(),
	}
}

type notificationsResponse struct {
	Pending   []model.NotificationRequest   `json:"pending"`
	Delivered []model.DeliveredNotification `json:"delivered"`
}

func (api *API) GetNotifications(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Notifications retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data: notificationsResponse{
			Pending:   api.Deps.Notifications.Pending(),
			Delivered: api.Deps.Notifications.Delivered(),
		},
	}
}

func (api *API) TestNotification(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	id, err := api.Deps.Controller.TestNotification(r.Context())
	if err != nil {
		if errors.Is(err, platform.ErrNotAuthorized) {
			return respondWithError(err, "notifications are not authorized", values.NotAllowed, &tc)
		}
		return respondWithError(err, "unable to schedule test notification", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Test notification scheduled",
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       map[string]string{"id": id},
	}
}
