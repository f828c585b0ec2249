// Package av is the boundary to the native demux and decode collaborator.
//
// The collaborator is consumed through Backend, Demuxer and Decoder. Every
// native resource has one owner and is freed by that owner: a Demuxer by
// whoever opened it, a Packet by the stage that consumes or drops it, a
// Decoder by the stage that opened it. Native return codes are mapped onto
// the sentinel errors of this package by FromCode and keep the original code
// in an *Error.
//
// Synthetic is an in-process Backend that fabricates interleaved streams
// from the locator itself. It is used by tests and by recipes that exercise
// the media stages without real media files.
package av
