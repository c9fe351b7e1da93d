package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecode_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "abc"})

	var out struct {
		ID string `json:"id"`
	}
	if err := Decode(rec.Code, rec.Body, &out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.ID != "abc" {
		t.Errorf("ID = %q, want abc", out.ID)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter)
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "conflict",
			write:       func(w http.ResponseWriter) { Conflict(w, "stale revision") },
			wantStatus:  http.StatusConflict,
			wantMessage: "stale revision",
		},
		{
			name:       "non json body",
			write:      func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway); w.Write([]byte("<html>")) },
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			err := Decode(rec.Code, rec.Body, nil)

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Decode() error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != tt.wantStatus || statusErr.Message != tt.wantMessage {
				t.Errorf("StatusError = %+v", statusErr)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Message(rec, "Logged out successfully")

	if !strings.Contains(rec.Body.String(), `"message":"Logged out successfully"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if err := Decode(rec.Code, rec.Body, nil); err != nil {
		t.Errorf("Decode() error = %v", err)
	}
}

func TestDecode_ErrorData(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWithData(rec, http.StatusConflict, "conflict", map[string][]string{"secret_ids": {"b"}})

	err := Decode(rec.Code, rec.Body, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Decode() error = %v, want *StatusError", err)
	}
	if got := string(statusErr.Data); got != `{"secret_ids":["b"]}` {
		t.Errorf("Data = %s", got)
	}
}
