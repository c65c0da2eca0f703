package notify

import (
	"fmt"
	"io"
	"sync"
)

// Notifier surfaces transient success and error messages to the user
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Console prints notifications as single lines
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Success(msg string) { c.print("✓", msg) }

func (c *Console) Error(msg string) { c.print("✗", msg) }

func (c *Console) print(mark, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", mark, msg)
}

// Level of a recorded notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Entry is one recorded notification
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps notifications in memory
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }

func (r *Recorder) Error(msg string) { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded so far
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Last returns the most recent entry
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}
