// Package utils provides shared helpers for logging, text, and vector math.
package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. With debug true it uses the development
// config (console output, debug level); otherwise the production config
// (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
