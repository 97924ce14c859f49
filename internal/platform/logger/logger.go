package logger

import (
	"log"
	"os"
)

// New returns a basic stdout logger. The sync service stays silent unless
// one is attached, so the host app controls where diagnostics go.
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}
