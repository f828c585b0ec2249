// Package convert provides stages that turn byte chunks into text: the
// visible text of HTML, a running SHA3-256 digest, and EXIF metadata.
//
// Every converter accepts Bytes, sends Text and must be linked to a text
// sink before the pipeline is initialized.
package convert
