package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process-wide zap logger. Development mode (anything other
// than GIN_MODE=release) gets the console encoder.
func New() (*zap.Logger, error) {
	if os.Getenv("GIN_MODE") == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must builds the logger and panics on failure. Boot-time use only.
func Must() *zap.Logger {
	l, err := New()
	if err != nil {
		panic(err)
	}
	return l
}
