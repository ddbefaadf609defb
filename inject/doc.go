// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package inject serves HTTP requests in-process.
//
// A [Server] wraps any [net/http.Handler]. Instead of accepting connections it
// takes [Options] describing a request, runs its pre-routing [Extension]s,
// serves the handler into an in-memory recorder and returns the [Response].
//
// Every injection gets a [Request] which handlers reach through [FromContext].
// Besides the native request id and the plugin data slot, the Request owns a
// tail-work registry: handlers may register work which keeps running after the
// response is written and callers wait on it through [Request.Tails].
//
//	func handle(w http.ResponseWriter, r *http.Request) {
//		req, _ := inject.FromContext(r.Context())
//		req.Go("audit", func(ctx context.Context) error {
//			return publish(ctx, req.ID)
//		})
//		w.WriteHeader(http.StatusAccepted)
//	}
package inject
