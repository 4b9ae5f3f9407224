// Package ui implements a terminal view of one viewer's dashboard state using bubbletea's Elm architecture.
//
// The [Model] follows a mounted [dashboard.Tree] and renders whatever the dashboard shell would show:
//  1. Loading : spinner while the session or channel context resolves
//  2. Redirect : the session is gone (signed out, revoked, or expired)
//  3. ConnectChannel : signed in without a linked YouTube channel
//  4. Tab : the tab list with the selected tab's heading
//
// Provider changes arrive through the tree's change channel as a Msg, so the view updates live when the
// session is revoked or a channel is linked from the web.
//
// Keyboard navigation uses vim-style bindings (h/l or ←/→ for tabs, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
