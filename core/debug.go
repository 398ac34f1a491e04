package core

import "fmt"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, a host
// console, or a test log.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// Debugf formats and writes one debug message through the registered
// writer. Formatting cost is only paid while debug output is enabled, so
// drivers may call it from reset and error paths freely.
func Debugf(format string, args ...interface{}) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(fmt.Sprintf(format, args...))
	}
}
