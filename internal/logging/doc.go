// Package logging provides opt-in file-based logging. When the --debug
// flag is set, JSON logs are written to ~/.imagecompare/logs/ with
// size-based rotation handled by lumberjack.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
