// Package text provides stages that produce, transform and print text.
package text
