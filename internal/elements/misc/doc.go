// Package misc provides scripted and instrumented stages for exercising
// chains in tests.
package misc
