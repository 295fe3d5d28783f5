package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// initLogger sets the level of the standard logrus logger. With a file the
// logs also go to a rotated file.
func initLogger(level string, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "parse log level '%s' failed", level)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if file == "" {
		return nil
	}
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    64, // MB
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
	if lvl >= log.DebugLevel {
		w.MaxSize = 512
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
	return nil
}
