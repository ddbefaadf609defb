// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lambdawrap runs an in-process HTTP server inside AWS Lambda.
//
// API Gateway proxy events are translated into in-process injections against
// a [Server] and the injected responses are translated back into proxy
// responses. The Server may still be initializing when the first event
// arrives, in which case every invocation waits on the same [Future].
//
//	router := mux.New()
//	router.HandleFunc(mux.MethodGet, "/health", health)
//
//	h := lambdawrap.NewHandler(
//		lambdawrap.Ready(inject.NewServer(router, inject.Compression(false))),
//		lambdawrap.BasePath("/v1"),
//	)
//	lambda.Start(h.Invoke)
//
// Work a route handler registers on its [inject.Request] with
// [inject.Request.Go] or [inject.Request.Tail] is awaited before Invoke
// returns, so the execution environment is never frozen mid-work.
package lambdawrap
