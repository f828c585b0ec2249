// Package config provides the configuration of the streamcraft command:
// run limits, report format, the capture store location and where recipe
// files are searched for.
package config
