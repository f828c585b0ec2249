// Package store provides the stage that persists pipeline data to the
// SQLite capture store.
package store
