// Package logging holds the library's internal leveled logger.
//
// The default level is Warn. The process env `SAFEMEM_LOG_LEVEL` overrides
// it, and `SAFEMEM_DEBUG_MODE` turns on the live-allocation tracker.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Logger writes leveled, caller-located lines to a single writer.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	internal  = &Logger{"", os.Stdout, 3}
	level     int
	debugMode = false

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

// Log levels accepted by SetLogLevel and SAFEMEM_LOG_LEVEL.
const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

func init() {
	level = LevelWarn
	if os.Getenv("SAFEMEM_LOG_LEVEL") != "" {
		if n, err := strconv.Atoi(os.Getenv("SAFEMEM_LOG_LEVEL")); err == nil {
			if n <= LevelNoPrint {
				level = n
			}
		}
	}

	if os.Getenv("SAFEMEM_DEBUG_MODE") != "" {
		debugMode = true
	}
}

// SetLogLevel changes the internal logger's level. The default is Warn.
func SetLogLevel(l int) {
	if l <= LevelNoPrint {
		level = l
	}
}

// SetDebugMode toggles debug mode at runtime. Debug mode enables the
// live-allocation tracker in addition to debug logging.
func SetDebugMode(on bool) {
	debugMode = on
}

// DebugMode reports whether debug mode is enabled.
func DebugMode() bool {
	return debugMode
}

// Default returns the library-wide logger.
func Default() *Logger {
	return internal
}

// New returns a named logger writing to out (stdout when out is nil).
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 3,
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	if level > LevelError {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelError)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger errorf failed: %v\n", err)
	}
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	if level > LevelWarn {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelWarn)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger warnf failed: %v\n", err)
	}
}

func (l *Logger) Infof(format string, a ...interface{}) {
	if level > LevelInfo {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelInfo)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger infof failed: %v\n", err)
	}
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	if level > LevelDebug {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelDebug)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger debugf failed: %v\n", err)
	}
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	if level > LevelTrace {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelTrace)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger tracef failed: %v\n", err)
	}
}

func (l *Logger) prefix(level int) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	_, _ = buf.WriteString(colors[level])
	_, _ = buf.WriteString(levelName[level])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
