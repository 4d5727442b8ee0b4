package debugserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// envelope is the standard JSON response shape for every endpoint.
type envelope struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, "")
}

func respondError(w http.ResponseWriter, reqID string, status int, msg string) {
	respondJSON(w, status, reqID, nil, msg)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, errMsg string) {
	resp := envelope{
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
		Error:     errMsg,
	}
	if errMsg != "" {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
