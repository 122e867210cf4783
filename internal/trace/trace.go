// Package trace keeps a bounded in-memory log of heuristic decisions made while
// classifying emails, extracting orders and scoring nutrition candidates.
package trace

import (
	"sync"
	"time"
)

// Stage names the pipeline step that emitted an event.
type Stage string

const (
	StageClassify Stage = "classify"
	StageExtract  Stage = "extract"
	StageResolve  Stage = "resolve"
	StageScore    Stage = "score"
	StageCache    Stage = "cache"
)

// Event is one pattern-match attempt or candidate score.
type Event struct {
	Time    time.Time `json:"time"`
	Stage   Stage     `json:"stage"`
	Name    string    `json:"name"`
	Detail  string    `json:"detail,omitempty"`
	Score   float64   `json:"score,omitempty"`
	Matched bool      `json:"matched"`
}

// Recorder accepts trace events.
type Recorder interface {
	Record(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) {}

// DefaultCapacity is the ring size used when NewLog is given a non-positive capacity.
const DefaultCapacity = 2048

// Log is a fixed-size ring buffer of events, safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	now    func() time.Time
}

// NewLog creates a Log holding at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{events: make([]Event, capacity), now: time.Now}
}

func (l *Log) Record(e Event) {
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = e
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
}

// Events returns a snapshot of recorded events, oldest first.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Event(nil), l.events[:l.next]...)
	}
	out := make([]Event, 0, len(l.events))
	out = append(out, l.events[l.next:]...)
	return append(out, l.events[:l.next]...)
}

// Filter returns the snapshot restricted to one stage.
func (l *Log) Filter(stage Stage) []Event {
	var out []Event
	for _, e := range l.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = 0
	l.full = false
}

// OrNop returns r, or a Nop recorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
