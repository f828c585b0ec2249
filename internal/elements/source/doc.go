// Package source provides head stages that read bytes from files and
// readers.
package source
