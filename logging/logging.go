// Package logging provides caller-annotated logrus logging.
package logging

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields attached to a log entry.
type Fields = logrus.Fields

func identifyCaller(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "<unknown>"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "<unknown>"
	}

	return fn.Name()
}

func entry(skip int) *logrus.Entry {
	return logrus.WithField("caller", identifyCaller(skip+1))
}

// Configure the level and format of the standard logger.
//
// The format is either "text" or "json".
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	return nil
}

// Set the output of the standard logger.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Get an entry annotated with the caller and the given fields.
func WithFields(fields Fields) *logrus.Entry {
	return entry(2).WithFields(fields)
}

func Debug(args ...interface{}) {
	entry(2).Debug(fmt.Sprint(args...))
}

func Debugf(format string, args ...interface{}) {
	entry(2).Debugf(format, args...)
}

func Info(args ...interface{}) {
	entry(2).Info(fmt.Sprint(args...))
}

func Infof(format string, args ...interface{}) {
	entry(2).Infof(format, args...)
}

func Warn(args ...interface{}) {
	entry(2).Warn(fmt.Sprint(args...))
}

func Warnf(format string, args ...interface{}) {
	entry(2).Warnf(format, args...)
}

func Error(args ...interface{}) {
	entry(2).Error(fmt.Sprint(args...))
}

func Errorf(format string, args ...interface{}) {
	entry(2).Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	entry(2).Fatal(fmt.Sprint(args...))
}

func Fatalf(format string, args ...interface{}) {
	entry(2).Fatalf(format, args...)
}
