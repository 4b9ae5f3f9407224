// Package repositories is the backend persistence for sessions and channel links.
//
// [SQLiteStore] is the default, file or in-memory; [PostgresStore] runs against a pgx pool for hosted deployments.
// Both satisfy [Store] and share the embedded migrations from the shared package.
// Times are stored in UTC so lexical comparisons in SQLite match chronological order.
package repositories
