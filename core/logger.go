package core

// Logger is what services log through.
// expected args: error, map[string]interface{} (extras), Scope (acting tenant), or key/value pairs
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
