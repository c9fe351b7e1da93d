package response

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Message(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{
		Success: true,
		Message: message,
	})
}

func Error(w http.ResponseWriter, statusCode int, err string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   err,
	})
}

// ErrorWithData is Error with a machine readable payload, e.g. the ids
// a conflict applies to.
func ErrorWithData(w http.ResponseWriter, statusCode int, err string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Data:    data,
		Error:   err,
	})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func Unauthorized(w http.ResponseWriter, err string) {
	Error(w, http.StatusUnauthorized, err)
}

func Forbidden(w http.ResponseWriter, err string) {
	Error(w, http.StatusForbidden, err)
}

func NotFound(w http.ResponseWriter, err string) {
	Error(w, http.StatusNotFound, err)
}

func Conflict(w http.ResponseWriter, err string) {
	Error(w, http.StatusConflict, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}

// StatusError is a failed response as seen by a client.
type StatusError struct {
	StatusCode int
	Message    string
	Data       json.RawMessage
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.StatusCode), e.Message)
}

// Decode reads a Response envelope and unmarshals its data into v. A
// status of 400 or above is returned as *StatusError.
func Decode(statusCode int, body io.Reader, v interface{}) error {
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil && err != io.EOF {
		if statusCode >= 400 {
			return &StatusError{StatusCode: statusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if statusCode >= 400 || !raw.Success && raw.Error != "" {
		return &StatusError{StatusCode: statusCode, Message: raw.Error, Data: raw.Data}
	}

	if v == nil || len(raw.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
