// Package logger is the ambient logging facade every source, filter, and
// sink is handed at construction time — mirroring telegraf's pattern of
// injecting a `Log telegraf.Logger` field (see
// plugins/inputs/statsd/statsd.go's `s.Log.Infof(...)` calls) rather than
// having components reach for a global logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the interface every pipeline component logs through.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a child Logger carrying an additional structured field,
	// e.g. logger.With("component", "sink.native").
	With(key string, value interface{}) Logger
}

// entry adapts a *logrus.Entry to Logger.
type entry struct {
	*logrus.Entry
}

func (e entry) With(key string, value interface{}) Logger {
	return entry{e.Entry.WithField(key, value)}
}

var base = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}()

// SetLevel adjusts the verbosity of every Logger returned by For; it
// affects the shared base logrus.Logger.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// For returns a Logger scoped to the named component, the equivalent of
// telegraf handing each plugin instance its own pre-tagged Logger.
func For(component string) Logger {
	return entry{base.WithField("component", component)}
}
