package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the payload under the "error" key of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON encodes v before touching the response so an unencodable value
// still yields a clean 500 instead of a truncated body.
func JSON(w http.ResponseWriter, status int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		buf = []byte(`{"error":{"code":"INTERNAL","message":"response encoding failed"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(buf, '\n'))
}

func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// WriteError renders err. Anything that is not an AppError is reported as
// a bare 500 so internal messages never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	var app *AppError
	if !errors.As(err, &app) || app == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	body := ErrorBody{Code: app.Code, Message: app.Message, Details: app.Details}
	status := app.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if body.Code == "" {
		body.Code = "INTERNAL"
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}
	var syntax *json.SyntaxError
	if body.Details == nil && errors.As(app.Err, &syntax) {
		body.Details = map[string]int64{"offset": syntax.Offset}
	}
	JSON(w, status, errorEnvelope{Error: body})
}
