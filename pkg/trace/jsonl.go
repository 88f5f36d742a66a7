package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentloom/loom/pkg/domain"
)

// JSONLSink appends one JSON line per event to a file per run id inside a
// directory. Files stay open until Close.
type JSONLSink struct {
	dir    string
	masker *Masker

	mu    sync.Mutex
	files map[string]*os.File
}

// NewJSONLSink creates the directory if needed.
func NewJSONLSink(dir string, masker *Masker) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if masker == nil {
		masker = DefaultMasker()
	}
	return &JSONLSink{dir: dir, masker: masker, files: make(map[string]*os.File)}, nil
}

func (s *JSONLSink) Emit(event domain.TraceEvent) {
	if event.Payload != nil {
		event.Payload = s.masker.Redact(event.Payload)
	}
	if event.Err != "" {
		event.Err = s.masker.sanitize(event.Err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.file(event.RunID)
	if err != nil {
		return
	}
	// Emit must not fail the run; a broken line is dropped.
	_ = json.NewEncoder(f).Encode(event)
}

func (s *JSONLSink) file(runID string) (*os.File, error) {
	if runID == "" {
		runID = "events"
	}
	if f, ok := s.files[runID]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(s.dir, runID+".jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.files[runID] = f
	return f, nil
}

// Close closes every open run file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for runID, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.files, runID)
	}
	return firstErr
}
