// Package log is the logging interface used by the host-side packages.
package log

import (
	"io"
	stdlog "log"
)

type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type logger struct {
	l     *stdlog.Logger
	debug bool
}

// New returns a logger writing timestamped lines to w. Debug lines are
// only written when debug is set.
func New(w io.Writer, debug bool) Logger {
	return &logger{
		l:     stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime),
		debug: debug,
	}
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.l.Printf("[INFO]\t"+format, args...)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.l.Printf("[ERROR]\t"+format, args...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.l.Printf("[DEBUG]\t"+format, args...)
}
