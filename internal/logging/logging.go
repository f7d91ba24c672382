// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sets the level and the text or json formatter. Output goes to stdout.
func Configure(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	switch format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)
	return nil
}
