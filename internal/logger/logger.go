package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Fields carries structured context attached to log entries.
type Fields map[string]any

// Logger is the structured logging interface used across the service.
type Logger interface {
	WithFields(fields Fields) Logger

	Info(action, message string)
	Warn(action, message string)
	Error(action string, err error)
}

// entry is the JSON schema of one log line.
type entry struct {
	Timestamp string  `json:"timestamp"`
	Level     string  `json:"level"`
	Service   string  `json:"service"`
	Action    string  `json:"action"`
	Message   string  `json:"message"`
	Hostname  string  `json:"hostname"`
	Error     *errObj `json:"error,omitempty"`
	Fields    Fields  `json:"fields,omitempty"`
}

type errObj struct {
	Msg string `json:"msg"`
}

// jsonLogger writes one JSON object per line to out.
type jsonLogger struct {
	mu         *sync.Mutex
	out        io.Writer
	service    string
	hostname   string
	baseFields Fields
}

// New creates a structured JSON logger for a named service, writing to stdout.
func New(service string) Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter is like New but writes to the given writer. Used by tests.
func NewWithWriter(service string, out io.Writer) Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &jsonLogger{
		mu:       &sync.Mutex{},
		out:      out,
		service:  service,
		hostname: host,
	}
}

// WithFields returns a logger that includes fields on every entry it writes.
func (l *jsonLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &jsonLogger{
		mu:         l.mu,
		out:        l.out,
		service:    l.service,
		hostname:   l.hostname,
		baseFields: merged,
	}
}

func (l *jsonLogger) Info(action, message string) {
	l.log("INFO", action, message, nil)
}

func (l *jsonLogger) Warn(action, message string) {
	l.log("WARN", action, message, nil)
}

func (l *jsonLogger) Error(action string, err error) {
	msg := ""
	var e *errObj
	if err != nil {
		msg = err.Error()
		e = &errObj{Msg: msg}
	}
	l.log("ERROR", action, msg, e)
}

func (l *jsonLogger) log(level, action, message string, e *errObj) {
	ent := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   l.service,
		Action:    action,
		Message:   message,
		Hostname:  l.hostname,
		Error:     e,
	}
	if len(l.baseFields) > 0 {
		ent.Fields = l.baseFields
	}

	line, err := json.Marshal(ent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(line))
}

// nopLogger discards everything. Handy as a default in tests.
type nopLogger struct{}

func (nopLogger) WithFields(Fields) Logger { return nopLogger{} }
func (nopLogger) Info(string, string)      {}
func (nopLogger) Warn(string, string)      {}
func (nopLogger) Error(string, error)      {}

// Nop returns a logger that drops all entries.
func Nop() Logger { return nopLogger{} }
