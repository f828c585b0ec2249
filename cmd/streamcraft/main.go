// Package main provides the entry point for the streamcraft CLI.
//
// streamcraft runs processing pipelines described by YAML recipes. Each
// stage of a pipeline runs in its own goroutine and hands data to the next
// stage one item at a time.
//
// Usage:
//
//	streamcraft run recipe.yaml
//	streamcraft hello
//
// See --help for all available options.
package main

func main() {
	Execute()
}
