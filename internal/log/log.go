// Package log provides context-scoped structured logging shared by every
// provisioning component, mirroring the teacher's internal/log package
// (format.go, hook.go) with the context accessor those files assume but
// don't themselves define.
package log

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

var root = newRootLogger()

func newRootLogger() *logrus.Logger {
	l := logrus.New()
	l.AddHook(NewHook())
	if os.Getenv("IRONFRAME_LOG_FORMAT") == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: TimeFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: TimeFormat})
	}
	return l
}

// WithContext returns a new context with entry attached, so that a later
// G(ctx) call picks up any fields set on entry.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// G returns the logrus.Entry associated with ctx, or a fresh entry off
// the root logger if none was attached.
func G(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(root)
}

// L is the package-level logger for call sites without a context handy.
func L() *logrus.Entry {
	return logrus.NewEntry(root)
}
