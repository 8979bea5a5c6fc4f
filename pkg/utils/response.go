package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// errorBody is the standard error envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, code, message, traceID string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.TraceID = traceID
	RespondJSON(w, status, body)
}
