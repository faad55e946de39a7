// Package logger provides the structured logging interface used across the
// archiver. It wraps zerolog with a coloured console writer, optional JSON
// output and an optional log file.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("channel", "somechannel")
//	log.InfoWithFields("Collected posts", map[string]interface{}{"count": 42})
//
// Components take a Logger in their constructors; tests pass NewTestLogger
// to assert on what was reported, or NewNopLogger to silence output.
package logger
