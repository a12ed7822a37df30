package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the package-level logrus logger. Services log JSON; the
// CLI passes json=false.
func Setup(level string, json bool) {
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	log.SetOutput(os.Stderr)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
