// Package logging provides the module-wide structured logger.
package logging

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger used by every package in this module.
var Log = New()

// New builds a logger with the module's standard formatter. Exposed mainly
// for tests that want to capture output on a private instance.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&callerFormatter{})
	return l
}

// SetLevel parses and applies a level name, defaulting to Info on failure.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// callerFormatter renders "[15:04:05.000] [INFO] (pkg.Func) message" lines,
// trimming the logrus/runtime frames so the reported caller is the first
// frame outside this package and the logrus library itself.
type callerFormatter struct{}

func (f *callerFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	msg := fmt.Sprintf("[%s] [%s] (%s) %s\n",
		e.Time.Format("15:04:05.000"),
		level,
		caller(),
		e.Message)
	return []byte(msg), nil
}

func caller() string {
	for i := 2; i < 25; i++ {
		pc, file, _, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "/logrus/") || strings.Contains(file, "logging/logging.go") {
			continue
		}
		name := runtime.FuncForPC(pc).Name()
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		return name
	}
	return "unknown"
}
