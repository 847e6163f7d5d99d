// Package output writes suggestion records as JSON lines.
package output

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"feesuggest/internal/feesuggest"
)

// Record is one line of watch output.
type Record struct {
	Time   time.Time `json:"time"`
	Newest string    `json:"newest"`
	*feesuggest.Suggestions
}

type Sink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// Open appends to path, creating parent directories. "-" writes to stdout.
func Open(path string) (*Sink, error) {
	if path == "-" {
		return NewSink(os.Stdout), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s := NewSink(f)
	s.closer = f
	return s, nil
}

func NewSink(w io.Writer) *Sink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Sink{enc: enc}
}

func (s *Sink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}

func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
