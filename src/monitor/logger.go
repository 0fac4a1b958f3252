package monitor

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// LogLevel is a diagnostic severity. Messages below the current level are dropped.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// levelTags is indexed by LogLevel and doubles as the accepted spelling of each level.
var levelTags = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || int(l) >= len(levelTags) {
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
	return levelTags[l]
}

// ParseLogLevel accepts the level tags case-insensitively, plus "warning".
func ParseLogLevel(s string) (LogLevel, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return LevelWarn, true
	}
	for i, tag := range levelTags {
		if s == tag {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

var baseLogger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

var threshold atomic.Int32

func init() { threshold.Store(int32(LevelInfo)) }

// ValidLogLevel reports whether s names a known level.
func ValidLogLevel(s string) bool {
	_, ok := ParseLogLevel(s)
	return ok
}

// SetLogLevel changes the threshold. Unknown names leave it as is.
func SetLogLevel(s string) {
	if l, ok := ParseLogLevel(s); ok {
		threshold.Store(int32(l))
	}
}

// GetLogLevel returns the current threshold.
func GetLogLevel() LogLevel { return LogLevel(threshold.Load()) }

// SetOutput redirects diagnostics, e.g. into a test buffer.
func SetOutput(w io.Writer) { baseLogger.SetOutput(w) }

func enabled(l LogLevel) bool { return l >= GetLogLevel() }

// emit writes one "[TAG] message" line. A call without args is printed verbatim so a
// pre-formatted message keeps any literal '%'.
func emit(l LogLevel, format string, args []interface{}) {
	if !enabled(l) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	baseLogger.Print("[" + l.String() + "] " + msg)
}

func Debugf(format string, a ...interface{}) { emit(LevelDebug, format, a) }
func Infof(format string, a ...interface{})  { emit(LevelInfo, format, a) }
func Warnf(format string, a ...interface{})  { emit(LevelWarn, format, a) }
func Errorf(format string, a ...interface{}) { emit(LevelError, format, a) }

// TimeTrack logs the time elapsed since start at debug level. Use it as
// defer TimeTrack(time.Now(), "phase").
func TimeTrack(start time.Time, label string) {
	if !enabled(LevelDebug) {
		return
	}
	Debugf("%s took %s", label, time.Since(start).Round(time.Microsecond))
}
