package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Entry is one decoded log line.
type Entry struct {
	TimestampMicros int64
	SessionID       string
	Event           string
	Data            map[string]interface{}
}

// String returns a field of the event data, or "" if it is missing.
func (e *Entry) String(field string) string {
	switch v := e.Data[field].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		fields := logEntry.GetFields()
		entry := &Entry{
			TimestampMicros: int64(fields[FieldTimestamp].GetNumberValue()),
			SessionID:       fields[FieldSessionID].GetStringValue(),
			Event:           fields[FieldEvent].GetStringValue(),
			Data:            fields[FieldData].GetStructValue().AsMap(),
		}
		handler(entry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries int        `json:"log_entries"`
	Events     StrCounter `json:"events"`
	Sessions   StrCounter `json:"sessions"`

	Commands        *PathCounter `json:"commands"`
	UnknownCommands StrCounter   `json:"unknown_commands"`
	Aborts          StrCounter   `json:"aborts"`
	SyntaxErrors    StrCounter   `json:"syntax_errors"`
	Logins          *PathCounter `json:"logins"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Commands: NewPathCounter("command", "status"),
		Logins:   NewPathCounter("user", "result"),
	}
}

// Update adds an entry to the report.
func (r *Report) Update(le *Entry) {
	r.LogEntries++
	r.Events.Increment(le.Event)

	switch le.Event {
	case EventSessionStart:
		r.Sessions.Increment(le.String("mode"))
	case EventRunCommand:
		r.Commands.Increment(le.String("name"), le.String("status"))
	case EventUnknownCommand:
		r.UnknownCommands.Increment(le.String("name"))
	case EventAbort:
		r.Aborts.Increment(le.String("status"))
	case EventSyntaxError:
		r.SyntaxErrors.Increment(le.String("error"))
	case EventLoginAttempt:
		r.Logins.Increment(le.String("user"), le.String("result"))
	}
}

// SessionReport is the history of a single session.
type SessionReport struct {
	Mode     string   `json:"mode"`
	User     string   `json:"user,omitempty"`
	Commands []string `json:"commands"`
	Status   string   `json:"status"`
}

// Update adds an entry to the session history.
func (s *SessionReport) Update(le *Entry) {
	switch le.Event {
	case EventSessionStart:
		s.Mode = le.String("mode")
		s.User = le.String("user")
	case EventRunCommand, EventUnknownCommand:
		s.Commands = append(s.Commands, le.String("text"))
	case EventSessionEnd:
		s.Status = le.String("status")
	}
}

// SessionsReport groups entries by session ID.
type SessionsReport struct {
	// Map of sessionID -> history
	sessions map[string]*SessionReport
}

func (i *SessionsReport) init() {
	if i.sessions == nil {
		i.sessions = make(map[string]*SessionReport)
	}
}

// MarshalJSON implements a custom JSON marshaler.
func (i *SessionsReport) MarshalJSON() ([]byte, error) {
	i.init()

	return json.Marshal(i.sessions)
}

// Update adds an entry to the session it belongs to.
func (i *SessionsReport) Update(le *Entry) {
	i.init()

	if le.SessionID == "" {
		return
	}
	report, ok := i.sessions[le.SessionID]
	if !ok {
		report = &SessionReport{}
		i.sessions[le.SessionID] = report
	}

	report.Update(le)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for a key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

// NewPathCounter creates a counter keyed on the given columns.
func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for a key.
func (ctr *PathCounter) Get(key ...string) int {
	return ctr.internal[toKey(key...)]
}

// MarshalJSON implements a custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
