package soak

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NewLogger builds a logrus logger writing to out as configured by c.
func NewLogger(c LogCfg, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)
	level := c.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	switch c.Format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return l, nil
}

// rateLimitedEntry drops log lines arriving faster than once per interval.
type rateLimitedEntry struct {
	entry *logrus.Entry
	limit *rate.Limiter
}

func rateLimited(e *logrus.Entry, every time.Duration) *rateLimitedEntry {
	return &rateLimitedEntry{
		entry: e,
		limit: rate.NewLimiter(rate.Every(every), 1),
	}
}

func (rl *rateLimitedEntry) Warn(fields logrus.Fields, msg string) bool {
	if !rl.limit.Allow() {
		return false
	}
	rl.entry.WithFields(fields).Warn(msg)
	return true
}
