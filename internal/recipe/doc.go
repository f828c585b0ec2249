// Package recipe builds pipelines from YAML documents.
//
// A recipe names the head stage and, under it, the chain of stages each
// producer feeds:
//
//	name: page-text
//	steps: 100
//	head:
//	  kind: filesrc
//	  with:
//	    location: file:index.html
//	  sink:
//	    kind: htmltext
//	    sink:
//	      kind: stdoutlog
//
// A fan-out stage lists its consumers under outputs, keyed by slot name.
// Build constructs the consumers before their producer and links them
// through stage.Producer.Link, so every link is checked for format and role
// while the recipe is assembled rather than when it runs.
package recipe
