package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Leveled process logger backed by logrus.
// - Init(level) and package-level Warnf/Errorf/Fatalf
// - WithTag for per-component entries (APP, MongoDb, Mailer, ...)

var base = newBase(os.Stdout)

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return l
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	case "fatal":
		base.SetLevel(logrus.FatalLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects all log output, mainly for tests.
func SetOutput(w io.Writer) { base.SetOutput(w) }

// WithTag returns an entry that labels every line with tag.
func WithTag(tag string) *logrus.Entry { return base.WithField("tag", tag) }

func Warnf(format string, v ...interface{})  { base.Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { base.Errorf(format, v...) }
func Fatalf(format string, v ...interface{}) { base.Fatalf(format, v...) }
