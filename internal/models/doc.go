// Package models defines the domain entities shared by the session, channel, and dashboard packages.
//
//   - [Session] : server-issued proof of a viewer's identity with linked-account [Metadata]
//   - [ChannelLink] : association between a user and a YouTube channel identifier
//   - [Identity] : the subject/email pair returned by the identity provider
//
// [Session] and [ChannelLink] are persisted by the repositories package; [Identity] only travels between the
// identity adapter and the session accessor.
package models
