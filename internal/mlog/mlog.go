// Package mlog is a generic, leveled logging library. Log methods take a
// message string and zero or more mctx.Annotations giving the specific
// context around the event (a connection's remote address, a replica id,
// the number of bytes propagated, ...).
package mlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
)

// Level describes the severity of a log message.
type Level struct {
	name string
	n    int
}

// Int gives an integer indicator of severity, with more severe levels having
// a lower value. A negative value indicates a fatal level.
func (l Level) Int() int { return l.n }

func (l Level) String() string { return l.name }

// Pre-defined log levels.
var (
	LevelDebug = Level{"DEBUG", 40}
	LevelInfo  = Level{"INFO", 30}
	LevelWarn  = Level{"WARN", 20}
	LevelError = Level{"ERROR", 10}
	LevelFatal = Level{"FATAL", -1}
)

// Message describes a single log entry before it's been formatted for
// output.
type Message struct {
	Level
	Namespace []string
	Descr     string
	Ann       map[string]interface{}
	Time      time.Time
}

// MessageHandler processes formatted Messages, e.g. by writing them to a
// file or network connection.
type MessageHandler interface {
	Handle(Message) error
}

type jsonHandler struct {
	l   sync.Mutex
	enc *json.Encoder
}

// NewMessageHandler returns a MessageHandler which writes each Message as a
// single JSON line to out.
func NewMessageHandler(out io.Writer) MessageHandler {
	return &jsonHandler{enc: json.NewEncoder(out)}
}

type messageJSON struct {
	Time      string                 `json:"time"`
	Level     string                 `json:"level"`
	Namespace []string               `json:"ns,omitempty"`
	Descr     string                 `json:"msg"`
	Ann       map[string]interface{} `json:"ann,omitempty"`
}

func (h *jsonHandler) Handle(msg Message) error {
	h.l.Lock()
	defer h.l.Unlock()
	return h.enc.Encode(messageJSON{
		Time:      msg.Time.UTC().Format(time.RFC3339Nano),
		Level:     msg.Level.String(),
		Namespace: msg.Namespace,
		Descr:     msg.Descr,
		Ann:       msg.Ann,
	})
}

// Logger directs Messages to an internal MessageHandler. All methods are
// safe for concurrent use.
type Logger struct {
	l        sync.RWMutex
	handler  MessageHandler
	maxLevel int
	ns       []string
	now      func() time.Time
}

// NewLogger returns a Logger writing LevelInfo and above to os.Stderr as
// JSON lines.
func NewLogger() *Logger {
	return &Logger{
		handler:  NewMessageHandler(os.Stderr),
		maxLevel: LevelInfo.Int(),
		now:      time.Now,
	}
}

// Null is a Logger which discards all messages.
var Null = &Logger{handler: NewMessageHandler(io.Discard), maxLevel: LevelFatal.Int(), now: time.Now}

// SetMessageHandler replaces the Logger's MessageHandler.
func (l *Logger) SetMessageHandler(h MessageHandler) {
	l.l.Lock()
	defer l.l.Unlock()
	l.handler = h
}

// SetMaxLevel sets the least severe level (by Int value, higher is less
// severe) which will be handled; Messages with a higher Int value are
// dropped.
func (l *Logger) SetMaxLevel(lvl Level) {
	l.l.Lock()
	defer l.l.Unlock()
	l.maxLevel = lvl.Int()
}

// WithNamespace returns a clone of the Logger with name appended to its
// namespace, which is included on every Message it logs.
func (l *Logger) WithNamespace(name string) *Logger {
	l.l.RLock()
	defer l.l.RUnlock()
	ns := make([]string, len(l.ns), len(l.ns)+1)
	copy(ns, l.ns)
	ns = append(ns, name)
	return &Logger{handler: l.handler, maxLevel: l.maxLevel, ns: ns, now: l.now}
}

func mergeAnn(anns []mctx.Annotation) map[string]interface{} {
	if len(anns) == 0 {
		return nil
	}
	out := make(map[string]interface{})
	for _, a := range anns {
		for k, v := range a {
			out[k] = v
		}
	}
	return out
}

func (l *Logger) log(lvl Level, descr string, anns []mctx.Annotation) {
	l.l.RLock()
	handler, maxLevel, ns, now := l.handler, l.maxLevel, l.ns, l.now
	l.l.RUnlock()

	if maxLevel < lvl.Int() {
		return
	}

	msg := Message{
		Level:     lvl,
		Namespace: ns,
		Descr:     descr,
		Ann:       mergeAnn(anns),
		Time:      now(),
	}

	if err := handler.Handle(msg); err != nil {
		fmt.Fprintf(os.Stderr, "mlog: failed to handle message: %v\n", err)
	}

	if lvl.Int() < 0 {
		os.Exit(1)
	}
}

// Debug logs a LevelDebug message.
func (l *Logger) Debug(descr string, anns ...mctx.Annotation) {
	l.log(LevelDebug, descr, anns)
}

// Info logs a LevelInfo message.
func (l *Logger) Info(descr string, anns ...mctx.Annotation) {
	l.log(LevelInfo, descr, anns)
}

// Warn logs a LevelWarn message.
func (l *Logger) Warn(descr string, anns ...mctx.Annotation) {
	l.log(LevelWarn, descr, anns)
}

// WarnErr logs a LevelWarn message describing err, including its
// annotations and stacktrace location if it's a merr.Error.
func (l *Logger) WarnErr(descr string, err error, anns ...mctx.Annotation) {
	l.log(LevelWarn, descr, append(anns, errAnn(err)))
}

// Error logs a LevelError message.
func (l *Logger) Error(descr string, anns ...mctx.Annotation) {
	l.log(LevelError, descr, anns)
}

// ErrorErr logs a LevelError message describing err, including its
// annotations and stacktrace location if it's a merr.Error.
func (l *Logger) ErrorErr(descr string, err error, anns ...mctx.Annotation) {
	l.log(LevelError, descr, append(anns, errAnn(err)))
}

// Fatal logs a LevelFatal message and then exits the process.
func (l *Logger) Fatal(descr string, anns ...mctx.Annotation) {
	l.log(LevelFatal, descr, anns)
}

func errAnn(err error) mctx.Annotation {
	ann := mctx.Annotation{"err": err.Error()}
	var e merr.Error
	if errors.As(err, &e) {
		if direct, ok := err.(merr.Error); ok {
			ann["err"] = direct.Err.Error()
		}
		if line := e.Stacktrace.String(); line != "" {
			ann["errLine"] = line
		}
		for k, v := range e.Ann {
			ann["err."+k] = v
		}
	}
	return ann
}
