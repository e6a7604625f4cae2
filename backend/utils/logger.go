package utils

import (
	"log"
	"os"

	"kosync/backend/config"
)

// InitLogger initializes and returns the process logger. With
// SINGLE_LINE_LOGGING set, the caller-location suffix is dropped so every
// entry stays on one line for plain log collectors.
func InitLogger(cfg *config.Config) *log.Logger {
	flags := log.LstdFlags | log.LUTC
	if !cfg.SingleLineLogging {
		flags |= log.Lshortfile
	}

	return log.New(os.Stdout, "[kosync] ", flags)
}
