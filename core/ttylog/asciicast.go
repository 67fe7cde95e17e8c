// Package ttylog records and replays terminal sessions in the asciicast v2
// format.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
package ttylog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// AsciicastFileExt holds the suggested file extension for asciicast files.
const AsciicastFileExt = "cast"

// Event types.
const (
	EventOutput = "o"
	EventInput  = "i"
)

// Header describes a recording.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// Event is one chunk of terminal data.
type Event struct {
	// Time is the offset from the start of the recording.
	Time time.Duration
	Type string
	Data string
}

func writeJSONLine(w io.Writer, structure interface{}) error {
	line, err := json.Marshal(structure)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", string(line))
	return err
}

// Recorder writes events to an asciicast file. It is safe for concurrent
// use.
type Recorder struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
	now   func() time.Time
	err   error
}

// NewRecorder writes the header and starts the recording clock. Zero sizes
// default to 80x24.
func NewRecorder(w io.Writer, header Header) (*Recorder, error) {
	return newRecorder(w, header, time.Now)
}

func newRecorder(w io.Writer, header Header, now func() time.Time) (*Recorder, error) {
	start := now()

	header.Version = 2
	if header.Width <= 0 {
		header.Width = 80
	}
	if header.Height <= 0 {
		header.Height = 24
	}
	header.Timestamp = start.Unix()

	if err := writeJSONLine(w, header); err != nil {
		return nil, err
	}

	return &Recorder{w: w, start: start, now: now}, nil
}

// Record appends an event. After the first write error, events are dropped
// and the error is returned by Err.
func (r *Recorder) Record(eventType string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil || len(data) == 0 {
		return
	}
	line := &asciicastLogLine{
		TimeSeconds: r.now().Sub(r.start).Seconds(),
		EventType:   eventType,
		EventData:   string(data),
	}
	r.err = writeJSONLine(r.w, line)
}

// Err returns the first error encountered while writing.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Output returns a writer that records everything written to it as
// terminal output.
func (r *Recorder) Output() io.Writer {
	return recorderWriter{r, EventOutput}
}

// Input returns a writer that records everything written to it as terminal
// input.
func (r *Recorder) Input() io.Writer {
	return recorderWriter{r, EventInput}
}

type recorderWriter struct {
	r         *Recorder
	eventType string
}

func (w recorderWriter) Write(p []byte) (int, error) {
	w.r.Record(w.eventType, p)
	return len(p), nil
}

// Reader reads events from an asciicast file.
type Reader struct {
	r      *bufio.Reader
	header *Header
}

// NewReader creates a reader. The header is read with the first call to
// Header or Next.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Header returns the recording's header.
func (log *Reader) Header() (*Header, error) {
	if log.header != nil {
		return log.header, nil
	}

	line, err := log.r.ReadBytes('\n')
	switch {
	case err == io.EOF && len(line) == 0:
		return nil, fmt.Errorf("missing header: %w", io.ErrUnexpectedEOF)
	case err != nil && err != io.EOF:
		return nil, err
	}

	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("malformed header: %w", err)
	}
	if header.Version != 2 {
		return nil, fmt.Errorf("unsupported asciicast version %d", header.Version)
	}
	log.header = &header
	return log.header, nil
}

// Next gets the next event, it returns io.EOF if there are no more.
func (log *Reader) Next() (*Event, error) {
	if _, err := log.Header(); err != nil {
		return nil, err
	}

	for {
		line, err := log.r.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(line) == 0) {
			return nil, err
		}

		if len(line) == 0 || string(line) == "\n" {
			// Skip blank lines
			continue
		}

		var asciicastLine asciicastLogLine
		if err := json.Unmarshal(line, &asciicastLine); err != nil {
			return nil, err
		}

		return &Event{
			Time: secondsToDuration(asciicastLine.TimeSeconds),
			Type: asciicastLine.EventType,
			Data: asciicastLine.EventData,
		}, nil
	}
}

// Replay writes the output events of a recording to w. If maxPause > 0,
// Replay sleeps between events for the recorded delay, up to maxPause.
func Replay(r io.Reader, w io.Writer, maxPause time.Duration) error {
	log := NewReader(r)
	var prev time.Duration

	for {
		event, err := log.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if maxPause > 0 {
			pause := event.Time - prev
			if pause > maxPause {
				pause = maxPause
			}
			time.Sleep(pause)
		}
		prev = event.Time

		if event.Type != EventOutput {
			continue
		}
		if _, err := io.WriteString(w, event.Data); err != nil {
			return err
		}
	}
}

type asciicastLogLine struct {
	TimeSeconds float64
	EventType   string
	EventData   string
}

func (log *asciicastLogLine) UnmarshalJSON(data []byte) error {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if count := len(v); count != 3 {
		return fmt.Errorf("malformed line, expected 3 entries got %d", count)
	}

	var timeOk, typeOk, dataOk bool
	log.TimeSeconds, timeOk = v[0].(float64)
	log.EventType, typeOk = v[1].(string)
	log.EventData, dataOk = v[2].(string)

	if !timeOk || !typeOk || !dataOk {
		return fmt.Errorf("malformed data in line: %q", v)
	}

	return nil
}

func (log *asciicastLogLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{log.TimeSeconds, log.EventType, log.EventData})
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second)).Round(time.Microsecond)
}
