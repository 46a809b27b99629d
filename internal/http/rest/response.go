package rest

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bwise1/geofence_reminders/util"
	"github.com/bwise1/geofence_reminders/util/tracing"
)

// ServerResponse is the JSON envelope every endpoint returns.
type ServerResponse struct {
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	if tc != nil {
		log.Printf("request %s from %s: %s: %v", tc.RequestID, tc.RequestSource, message, err)
	} else {
		log.Printf("%s: %v", message, err)
	}
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	log.Printf("%s: %v", message, err)
	resp := ServerResponse{
		Message: message,
		Status:  status,
	}
	respByte, _ := json.Marshal(resp)
	writeJSONResponse(w, respByte, util.StatusCode(status))
}

func writeJSONResponse(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(content); err != nil {
		log.Printf("unable to write json response: %v", err)
	}
}
