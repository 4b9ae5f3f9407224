// Package services wraps the external collaborators the dashboard talks to.
//
// # Identity Provider
//
// [GoogleService] implements [IdentityProvider] over the OAuth2 authorization code flow ([oauth2.Config]).
// The same client is used twice with different scopes and redirect URIs:
//   - sign-in: openid/email/profile, resolved to a [models.Identity] from the userinfo endpoint
//   - channel connect: youtube.readonly, resolved to the caller's channel id via channels?mine=true
//
// # Completion Service
//
// [CompletionService] implements [Completer] on top of the go-kit llm client (OpenAI-compatible chat API).
// It performs a single attempt per call; callers surface failures directly.
//
// # Error Handling
//
// Failures are wrapped in [shared.UpstreamError] with the shared sentinels underneath:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status
//   - [shared.ErrAuthFailed] : provider returned no usable identity
//   - [shared.ErrChannelNotFound] : the account owns no YouTube channel
//   - [shared.ErrEmptyCompletion] : the model returned blank text
package services
