// Package log sets up structured logging for streamcraft on top of log/slog.
//
// It provides:
//   - A RedactingHandler that masks credentials before records reach the
//     underlying text or JSON handler. Resource locators may carry
//     user:password pairs or tokens in query strings.
//   - A process-wide logger initialized once with Init and looked up by
//     stage name with Named.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	log.Init(logger)
//
//	l := log.Named("filesrc")
//	l.Debug("chunk read", "bytes", n, "locator", "file:/tmp/a.bin")
//
// Logging is fire-and-forget. Nothing in the pipeline depends on a log
// write succeeding.
package log
