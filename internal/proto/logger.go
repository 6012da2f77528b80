package proto

// LogLevel mirrors minilog's levels, kept as a string on the wire so the
// client can print it without importing the server's logging package.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// OrchestrationLogger is one frame of the log stream the server
// interleaves with instruction execution: either a Log line or the End
// marker that closes the stream for the current instruction.
type OrchestrationLogger struct {
	End     bool     `json:"end,omitempty"`
	Level   LogLevel `json:"level,omitempty"`
	Message string   `json:"message,omitempty"`
}

// LogFrame builds one log line frame.
func LogFrame(level LogLevel, message string) OrchestrationLogger {
	return OrchestrationLogger{Level: level, Message: message}
}

// EndFrame builds the frame that terminates the current instruction's
// log stream.
func EndFrame() OrchestrationLogger {
	return OrchestrationLogger{End: true}
}
