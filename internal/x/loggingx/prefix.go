package loggingx

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
)

// Prefix is a logging.Logger that prepends Text to every message before
// writing it to Target.
//
// If Target is nil, logging.DefaultLogger is used.
type Prefix struct {
	Target logging.Logger
	Text   string
}

// Log writes an application log message formatted according to a format
// specifier.
func (l Prefix) Log(f string, v ...interface{}) {
	logging.LogString(l.Target, l.Text+fmt.Sprintf(f, v...))
}

// LogString writes a pre-formatted application log message.
func (l Prefix) LogString(s string) {
	logging.LogString(l.Target, l.Text+s)
}

// Debug writes a debug log message formatted according to a format specifier.
func (l Prefix) Debug(f string, v ...interface{}) {
	if l.IsDebug() {
		logging.DebugString(l.Target, l.Text+fmt.Sprintf(f, v...))
	}
}

// DebugString writes a pre-formatted debug log message.
func (l Prefix) DebugString(s string) {
	logging.DebugString(l.Target, l.Text+s)
}

// IsDebug returns true if this logger will perform debug logging.
func (l Prefix) IsDebug() bool {
	return logging.IsDebug(l.Target)
}
