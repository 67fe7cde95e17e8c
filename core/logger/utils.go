package logger

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types.
const (
	EventSessionStart   = "session_start"
	EventSessionEnd     = "session_end"
	EventLoginAttempt   = "login_attempt"
	EventRunCommand     = "run_command"
	EventUnknownCommand = "unknown_command"
	EventAbort          = "abort"
	EventSyntaxError    = "syntax_error"
)

// Top level fields of every log entry.
const (
	FieldTimestamp = "timestamp_micros"
	FieldSessionID = "session_id"
	FieldEvent     = "event"
	FieldData      = "data"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *structpb.Struct) error

// Logger captures session events.
type Logger struct {
	Record LogRecorder
}

// NewJSONLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJSONLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(le *structpb.Struct) error {
			entry, err := protojson.MarshalOptions{Multiline: false}.Marshal(le)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return &Logger{
		Record: func(*structpb.Struct) error { return nil },
	}
}

func (l *Logger) recordEvent(sessionID, event string, data map[string]interface{}) error {
	payload, err := structpb.NewStruct(data)
	if err != nil {
		return err
	}

	le := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldTimestamp: structpb.NewNumberValue(float64(time.Now().UnixNano() / int64(time.Microsecond))),
			FieldSessionID: structpb.NewStringValue(sessionID),
			FieldEvent:     structpb.NewStringValue(event),
			FieldData:      structpb.NewStructValue(payload),
		},
	}
	return l.Record(le)
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: fmt.Sprintf("%d", rand.Uint64())}
}

// Sessionless creates a logger with no session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs events with a shared session ID. A nil SessionLogger
// discards events.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Record logs an event. Values in data must be accepted by
// structpb.NewValue.
func (l *SessionLogger) Record(event string, data map[string]interface{}) error {
	if l == nil || l.Logger == nil {
		return nil
	}
	return l.recordEvent(l.sessionID, event, data)
}

// Strings converts a string slice to a value structpb accepts.
func Strings(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
