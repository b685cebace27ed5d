// Package logging provides structured JSON logging for the import
// pipeline and its collaborators.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of a level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fields represents structured log fields.
type Fields map[string]any

// Logger writes structured JSON log entries.
type Logger struct {
	level   Level
	output  io.Writer
	mu      sync.Mutex
	service string
	fields  Fields
}

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// New creates a logger for the given service name.
func New(service string, level Level) *Logger {
	return &Logger{
		level:   level,
		output:  os.Stdout,
		service: service,
	}
}

// SetOutput sets the output destination for logs.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// WithFields returns a child logger that adds the given fields to every
// entry.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:   l.level,
		output:  l.output,
		service: l.service,
		fields:  merged,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(DebugLevel, message, fields, nil)
}

// Info logs an info message.
func (l *Logger) Info(message string, fields Fields) {
	l.log(InfoLevel, message, fields, nil)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(WarnLevel, message, fields, nil)
}

// Error logs an error message with error details.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(ErrorLevel, message, fields, err)
}

func (l *Logger) log(level Level, message string, fields Fields, err error) {
	if level < l.level {
		return
	}

	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Message:   message,
		Fields:    merged,
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v\n",
			e.Timestamp.Format(time.RFC3339), e.Level, message, fields)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}
