// Package server is a reference implementation of the VibeSync endpoint.
//
// It keeps accounts and library versions in memory and is meant for local development
// and end-to-end tests of the sync client.
//
// # Routes
//
//	POST /auth/register      create an account, returns {token, user}
//	POST /auth/login         exchange credentials for {token, user}
//	GET  /sync               current library snapshot (Bearer token)
//	POST /sync               store a new snapshot version (Bearer token)
//	GET  /sync/history       stored versions, newest first (Bearer token)
//	POST /sync/restore/{id}  make an older version current (Bearer token)
//	GET  /health             liveness probe
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
