// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON document written for error responses.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// NewErrorBody pairs the status with its standard reason phrase.
func NewErrorBody(status int, message string) ErrorBody {
	return ErrorBody{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	}
}

// WriteError writes status along with a JSON [ErrorBody].
func WriteError(w http.ResponseWriter, status int, message string) {
	b, err := json.Marshal(NewErrorBody(status, message))
	if err != nil {
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(b)
}
