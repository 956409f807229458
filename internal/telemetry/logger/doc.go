// Package logger provides structured logging for pulsekv.
//
// It builds log/slog handlers (JSON or text) whose level is shared and can
// be changed at runtime with SetLevel, which is how a config reload takes
// effect. Payload attributes (value, message, payload) are elided and long
// strings are clipped before they reach the handler, so stored data never
// ends up in log files.
package logger
