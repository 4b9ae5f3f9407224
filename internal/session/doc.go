// Package session resolves, creates, and revokes viewer sessions and exposes them as reactive state.
//
// # Accessor
//
// [Accessor] is the only path to the backend session store. It pairs two operations:
//   - GetSession: token → active [models.Session], or an [shared.AuthorizationError]
//   - ExchangeCode: authorization code → new session and its signed token
//
// Sign-out, channel linking, and revocation publish an [Event] to subscribers.
//
// # Context
//
// [Context] holds the current viewer's [State]. It starts loading, resolves once through the
// accessor after Mount, and then follows accessor events and the session expiry until Close.
// IsLoading only ever goes from true to false.
//
// # Tokens
//
// Session tokens are HS256 JWTs (see [Tokens]) whose jti is the session id and whose sub is the user id.
package session
