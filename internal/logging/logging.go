// Package logging wraps logrus with the panel's base configuration and
// optional rotating file output.
package logging

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupBaseLogger configures the process-wide logrus instance. Safe to call
// more than once.
func SetupBaseLogger() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stderr)
}

// SetDebug switches between debug and info level, logging the transition.
func SetDebug(debug bool) {
	currentLevel := log.GetLevel()
	newLevel := log.InfoLevel
	if debug {
		newLevel = log.DebugLevel
	}
	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Infof("log level changed from %s to %s (debug=%t)", currentLevel, newLevel, debug)
	}
}

// ConfigureLogOutput routes log output to a rotating file under logDir when
// toFile is set, mirroring stderr otherwise.
func ConfigureLogOutput(toFile bool, logDir string) error {
	if !toFile {
		log.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "panel.log"),
		MaxSize:    20, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}

// Re-exports so callers can import this package as `log`.
var (
	Debugf    = log.Debugf
	Infof     = log.Infof
	Warnf     = log.Warnf
	Errorf    = log.Errorf
	Fatalf    = log.Fatalf
	Debug     = log.Debug
	Info      = log.Info
	Warn      = log.Warn
	Error     = log.Error
	WithError = log.WithError
	WithField = log.WithField
)
