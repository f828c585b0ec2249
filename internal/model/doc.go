// Package model defines the data reported about pipeline runs.
package model
