// Package event defines the progress notifications emitted during a
// download and the sinks that consume them.
//
// Emission is fire-and-forget: a sink never reports back to the emitter,
// and a slow sink must not stall the download.
package event

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Status names the phase a Progress belongs to.
type Status string

const (
	// StatusSearching is emitted once, after the unread search, with Total set.
	StatusSearching Status = "searching"
	// StatusDownloading is emitted once per written attachment.
	StatusDownloading Status = "downloading"
)

// Progress is one progress notification.
type Progress struct {
	Status   Status `json:"status"`
	Current  int    `json:"current,omitempty"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
}

// Searching returns the event announcing the number of unread messages.
func Searching(total int) Progress {
	return Progress{Status: StatusSearching, Total: total}
}

// Downloading returns the event for one written attachment. current is the
// 1-based position of the source message in the batch.
func Downloading(current, total int, filename string) Progress {
	return Progress{Status: StatusDownloading, Current: current, Total: total, Filename: filename}
}

// Sink receives progress events. Emit may be called from several
// goroutines.
type Sink interface {
	Emit(Progress)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Progress)

// Emit calls f(p).
func (f SinkFunc) Emit(p Progress) { f(p) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Progress) {})

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// ChanSink forwards events to a buffered channel. Events are dropped when
// the buffer is full.
type ChanSink struct {
	ch      chan Progress
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewChanSink creates a ChanSink with the given buffer size.
func NewChanSink(size int) *ChanSink {
	if size < 1 {
		size = 1
	}
	return &ChanSink{ch: make(chan Progress, size)}
}

// Events returns the channel to drain.
func (s *ChanSink) Events() <-chan Progress {
	return s.ch
}

// Emit implements Sink.
func (s *ChanSink) Emit(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- p:
	default:
		s.dropped++
	}
}

// Dropped returns the number of events lost to a full buffer.
func (s *ChanSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close closes the channel. Later Emit calls are no-ops.
func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// JSONSink writes one JSON object per line, with a timestamp, for
// consumption by a wrapping process.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewJSONSink writes events to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w), now: time.Now}
}

type jsonLine struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Progress
}

// Emit implements Sink. Encoding errors are ignored.
func (s *JSONSink) Emit(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(jsonLine{Type: "progress", Timestamp: s.now().UTC(), Progress: p})
}

// Multi fans an event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(p Progress) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(p)
			}
		}
	})
}
