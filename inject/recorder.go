// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// recorder is the in-memory [http.ResponseWriter] injected requests are served into.
type recorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.status = status
	rec.wroteHeader = true
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.WriteHeader(http.StatusOK)
	return rec.body.Write(b)
}

// Flush implements [http.Flusher]. Everything is buffered anyway.
func (rec *recorder) Flush() {
	rec.WriteHeader(http.StatusOK)
}

func (rec *recorder) reset() {
	rec.header = make(http.Header)
	rec.status = 0
	rec.wroteHeader = false
	rec.body.Reset()
}

func (rec *recorder) result() (int, Header, []byte) {
	status := rec.status
	if !rec.wroteHeader {
		status = http.StatusOK
	}

	h := make(Header, len(rec.header))
	for k, vs := range rec.header {
		h[strings.ToLower(k)] = append([]string(nil), vs...)
	}

	payload := rec.body.Bytes()
	if len(payload) > 0 && h.Get("content-type") == "" {
		h.Set("content-type", http.DetectContentType(payload))
	}
	return status, h, payload
}

func setContentLength(h Header, n int) {
	if h.Get("transfer-encoding") != "" {
		return
	}
	h.Set("content-length", strconv.Itoa(n))
}
