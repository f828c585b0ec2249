// Package database provides the SQLite capture store.
//
// CaptureDB keeps two tables: captures, one row per payload written by a
// store sink, keyed by pipeline label and sequence number; and runs, one
// row per finished pipeline run holding its report as JSON.
//
// The store uses modernc.org/sqlite, so no cgo is needed and the whole
// store is a single file. WAL mode is enabled by default.
package database
