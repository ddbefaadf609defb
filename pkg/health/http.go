// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"encoding/json"
	"net/http"
)

// Status is the JSON body written by [NewHandler].
type Status struct {
	Status string `json:"status"`
}

// NewHandler serves m. A healthy metric responds with HTTP 200 and
// {"status":"ok"}, otherwise HTTP 503 and {"status":"unavailable"}.
func NewHandler(m Metric) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, Status{Status: "ok"}
		if !m.Healthy(r.Context()) {
			status, body = http.StatusServiceUnavailable, Status{Status: "unavailable"}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
}
