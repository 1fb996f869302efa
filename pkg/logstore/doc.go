// Package logstore implements the request/response logger driver (spec.md
// §4.G): a pending-insert-then-complete-update record of every dataplane
// request, keyed by clientId, backed by a pluggable storage driver.
//
// Two concrete drivers are provided, both SQLite-shaped but through
// different database/sql drivers so the process can run with or without
// cgo: SQLiteDriver (github.com/mattn/go-sqlite3, the "embedded
// single-file store") and RelationalDriver (modernc.org/sqlite, the
// "relational store", selectable by configuring logging.driver:
// "relational"). Both share the same schema and write-queue behaviour.
package logstore
