// Package logger is the structured event log for shell sessions.
//
// Events are google.protobuf.Struct values written as newline delimited
// JSON, one object per line.
package logger
