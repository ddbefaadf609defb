// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Webhook posts JSON documents to a single endpoint.
type Webhook struct {
	client *http.Client
	url    string
}

// NewWebhook returns a [Webhook] for url. A nil client uses [http.DefaultClient].
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{
		client: client,
		url:    url,
	}
}

// Notify marshals v as JSON and posts it. Any non 2xx response is
// returned as a [StatusCodeError].
func (w *Webhook) Notify(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusCodeError{StatusCode: resp.StatusCode}
	}
	return nil
}
