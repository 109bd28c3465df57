package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog discards log output unless STILLPOINT_LOG names a file to
// append to. The returned func closes the log file, if any.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	if lp := os.Getenv("STILLPOINT_LOG"); lp != "" {
		f, err := os.OpenFile(lp, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}
	return func() error { return nil }, nil
}
