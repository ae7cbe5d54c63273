// Package logger wraps zap with a process-wide sugared logger and context helpers.
//
// Services never hold a logger of their own: they pull it from the context
// (FromContext) so that names and key-value pairs attached higher up the call
// chain, such as the session id, flow into every line.
package logger
