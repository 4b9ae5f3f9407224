// Package dashboard composes the session and channel providers and selects what the dashboard shell shows.
//
// # Providers
//
// [Providers] is an ordered list. Mount initialises each provider in order so that a provider can
// depend on every provider before it; Close tears them down in reverse. [Tree] is the standard
// list: session first, then the channel context that follows it.
//
// # Shell
//
// [Shell.View] maps a session state and channel state to one of four views:
//   - Loading: either context is still resolving
//   - Redirect: no session, go to the login page
//   - ConnectChannel: signed in, no YouTube channel linked
//   - Tab: the requested dashboard tab
//
// [Renderer] turns a [Page] into HTML. Templates receive already-resolved data only.
package dashboard
