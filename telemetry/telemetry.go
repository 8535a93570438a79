// Package telemetry exports gate events to external sinks. Events are
// advisory: the gate functions identically with the noop exporter, and
// export failures never affect call outcomes.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is a single telemetry record.
type Event struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Exporter is the interface for telemetry sinks.
type Exporter interface {
	// Record buffers an event for export.
	Record(name string, fields map[string]interface{})
	// Flush writes any buffered events.
	Flush() error
	// Close flushes and releases the exporter.
	Close() error
}

// NewExporter creates an exporter for the given protocol.
// Supported protocols: "file" (JSON lines at endpoint path), "noop" or ""
// (discard).
func NewExporter(protocol, endpoint string) (Exporter, error) {
	switch protocol {
	case "file":
		return NewFileExporter(endpoint)
	case "noop", "":
		return NewNoopExporter(), nil
	default:
		return nil, fmt.Errorf("unknown telemetry protocol: %s", protocol)
	}
}

// --- Noop Exporter ---

// NoopExporter discards all events.
type NoopExporter struct{}

// NewNoopExporter creates an exporter that discards everything.
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

func (e *NoopExporter) Record(name string, fields map[string]interface{}) {}
func (e *NoopExporter) Flush() error                                      { return nil }
func (e *NoopExporter) Close() error                                      { return nil }

// --- File Exporter ---

// FileExporter appends events as JSON lines to a file.
type FileExporter struct {
	mu     sync.Mutex
	file   *os.File
	buffer []Event
}

// NewFileExporter creates a file exporter appending to the given path.
func NewFileExporter(path string) (*FileExporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	return &FileExporter{
		file:   f,
		buffer: make([]Event, 0, 64),
	}, nil
}

// Record buffers an event. The buffer is flushed once it reaches 64 events.
func (e *FileExporter) Record(name string, fields map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, Event{
		Name:      name,
		Timestamp: time.Now(),
		Fields:    fields,
	})
	if len(e.buffer) >= 64 {
		e.flush()
	}
}

// Flush writes all buffered events.
func (e *FileExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush()
}

// flush writes the buffer. Caller must hold e.mu.
func (e *FileExporter) flush() error {
	if len(e.buffer) == 0 {
		return nil
	}
	enc := json.NewEncoder(e.file)
	for _, ev := range e.buffer {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to write telemetry event: %w", err)
		}
	}
	e.buffer = e.buffer[:0]
	return nil
}

// Close flushes and closes the file.
func (e *FileExporter) Close() error {
	if err := e.Flush(); err != nil {
		return err
	}
	return e.file.Close()
}

// --- Memory Exporter (for tests) ---

// MemoryExporter retains events in memory for inspection.
type MemoryExporter struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryExporter creates an exporter that retains events in memory.
func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (e *MemoryExporter) Record(name string, fields map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, Event{
		Name:      name,
		Timestamp: time.Now(),
		Fields:    fields,
	})
}

func (e *MemoryExporter) Flush() error { return nil }
func (e *MemoryExporter) Close() error { return nil }

// Events returns a snapshot of the recorded events.
func (e *MemoryExporter) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// ByName returns recorded events with the given name.
func (e *MemoryExporter) ByName(name string) []Event {
	var out []Event
	for _, ev := range e.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

var (
	_ Exporter = (*NoopExporter)(nil)
	_ Exporter = (*FileExporter)(nil)
	_ Exporter = (*MemoryExporter)(nil)
)
