// Package logger wraps a zap sugared logger for packwatch.
//
// Loggers travel in a context.Context: commands name theirs with WithName,
// passes and workers attach fields with WithKV or WithFields, and call sites
// log through the package functions (InfoKV, WarnKV, ErrorKV, ...). Contexts
// without a logger fall back to the global one, which writes to stderr at the
// level set with SetLevel.
package logger
