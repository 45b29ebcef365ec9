package logging

// Leveled logging for udpreplay

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// ParseLevel maps a level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "quiet":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger provides leveled logging to the console and an optional file
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	format  string
	file    *os.File
	fileLog *log.Logger
	stdout  *log.Logger
	stderr  *log.Logger
}

// NewLogger creates a new text logger
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	return NewLoggerWithOptions(level, logFile, "text")
}

// NewLoggerWithOptions creates a logger with an explicit file format
// ("text" or "json"). Console output is always text.
func NewLoggerWithOptions(level LogLevel, logFile, format string) (*Logger, error) {
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	l := &Logger{
		level:  level,
		format: format,
		stdout: log.New(os.Stdout, "", 0),
		stderr: log.New(os.Stderr, "", 0),
	}

	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		flags := log.LstdFlags
		if format == "json" {
			flags = 0
		}
		l.fileLog = log.New(file, "", flags)
	}

	return l, nil
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return &Logger{
		level:  LogLevelSilent,
		format: "text",
		stdout: log.New(io.Discard, "", 0),
		stderr: log.New(io.Discard, "", 0),
	}
}

// SetOutput redirects console output. Nil writers are left unchanged.
func (l *Logger) SetOutput(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if stdout != nil {
		l.stdout = log.New(stdout, "", 0)
	}
	if stderr != nil {
		l.stderr = log.New(stderr, "", 0)
	}
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.write("error", fmt.Sprintf(format, v...), true)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.write("info", fmt.Sprintf(format, v...), false)
	}
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.write("verbose", fmt.Sprintf(format, v...), false)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.write("debug", fmt.Sprintf(format, v...), false)
	}
}

// write writes a message to the appropriate outputs
func (l *Logger) write(level, msg string, isError bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := strings.ToUpper(level) + ": " + msg

	if l.fileLog != nil {
		if l.format == "json" {
			l.fileLog.Println(jsonLine(level, msg))
		} else {
			l.fileLog.Println(line)
		}
	}

	// Errors go to stderr, others to stdout (but only if verbose/debug)
	if isError {
		l.stderr.Println(line)
	} else if l.level >= LogLevelVerbose {
		l.stdout.Println(line)
	}
}

func jsonLine(level, msg string) string {
	data, err := json.Marshal(struct {
		Time    string `json:"time"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level,
		Message: msg,
	})
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"message":%q}`, level, msg)
	}
	return string(data)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogStartup logs the replay parameters
func (l *Logger) LogStartup(pcapPath, oldDest, newSrc string, speed float64, limit int, handshakeTimeout time.Duration) {
	l.Info("Starting udpreplay")
	l.Verbose("  Capture: %s", pcapPath)
	l.Verbose("  Old destination: %s", oldDest)
	l.Verbose("  New source: %s", newSrc)
	l.Verbose("  Speed: %gx", speed)
	if limit > 0 {
		l.Verbose("  Limit: %d packets", limit)
	}
	if handshakeTimeout > 0 {
		l.Verbose("  Handshake timeout: %s", handshakeTimeout)
	} else {
		l.Verbose("  Handshake timeout: none")
	}
}

// LogHex logs hex data (for debug level)
func (l *Logger) LogHex(label string, data []byte) {
	if l.level >= LogLevelDebug {
		hexStr := fmt.Sprintf("%x", data)
		// Format as hex with spaces every 2 bytes
		var formatted strings.Builder
		for i := 0; i < len(hexStr); i += 2 {
			if i > 0 {
				formatted.WriteByte(' ')
			}
			formatted.WriteString(hexStr[i : i+2])
		}
		l.Debug("%s: %s", label, formatted.String())
	}
}
