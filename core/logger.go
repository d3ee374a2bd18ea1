package core

// Logger is the application wide logging interface.
// Expected args: error, map[string]interface{} (fields) and any printable value.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
