// Package server provides HTTP routing, middleware, and the route handlers of the dashboard service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [BasicRouter.Handle] accepts per-route middleware (session guards, rate limits) applied inside the router stack.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method dispatch.
//
// # Routes
//
//	GET  /login                         redirect to the identity provider (state cookie)
//	GET  /auth/callback?code=           exchange the code, always 302 /dashboard
//	POST /auth/logout                   revoke the session, 302 /login
//	GET  /dashboard?tab=                shell: loading, connect prompt, or tab (RequireSession)
//	GET  /api/session                   session/channel/view snapshot (RequireSessionAPI)
//	GET  /api/session/events            snapshot stream as Server-Sent Events (RequireSessionAPI)
//	POST /api/ai/suggestions/generate   completion proxy (RequireSessionAPI, rate limited)
//	GET  /api/youtube/connect           {"authUrl"} for channel consent (RequireSessionAPI)
//	GET  /api/youtube/callback          link the consenting channel, 302 /dashboard (RequireSession)
//	GET  /healthz                       liveness
//
// # OAuth Callbacks
//
// [AuthHandler] implements the sign-in authorization code callback. The state cookie set by /login is
// checked when present. The callback never branches its response on the exchange result: every request
// lands on /dashboard and the auth gate sends unauthenticated viewers back to /login.
//
// [YouTubeHandler] requires a matching state for the channel-connect callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
