package repositories

import (
	"context"
	"delivery-reschedule-service/internal/domain"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// JSONFileStore keeps packages and call logs in one JSON document on disk.
//
// Every mutation loads the whole document, applies the change and writes the
// whole document back through a temp file + rename. The load/save cycle is
// serialized within the process; separate processes sharing the file can
// still overwrite each other.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Return the package with the given tracking id.
func (s *JSONFileStore) FindPackage(ctx context.Context, trackingID string) (*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("find package: %w", err)
	}
	return doc.findPackage(trackingID)
}

// Set scheduled_at for the package with the given tracking id.
func (s *JSONFileStore) UpdatePackageSchedule(ctx context.Context, trackingID string, newDate string) error {
	return s.update(ctx, "update package schedule", func(doc *stateDocument) error {
		return doc.updateSchedule(trackingID, newDate)
	})
}

// Append a call log, assigning the next id.
func (s *JSONFileStore) AppendCallLog(ctx context.Context, log domain.CallLog) (int64, error) {
	var id int64
	err := s.update(ctx, "append call log", func(doc *stateDocument) error {
		id = doc.appendCallLog(log)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *JSONFileStore) MarkIncompleteLogsCompleted(ctx context.Context, trackingID string) error {
	return s.update(ctx, "mark logs completed", func(doc *stateDocument) error {
		doc.markIncompleteCompleted(trackingID)
		return nil
	})
}

func (s *JSONFileStore) ListCallLogs(ctx context.Context, trackingID string) ([]domain.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	return doc.callLogs(trackingID), nil
}

// Replace the whole document with the contents of a seed file.
func (s *JSONFileStore) Seed(ctx context.Context, seedPath string) error {
	doc, err := readSeedFile(seedPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, doc); err != nil {
		return fmt.Errorf("seed file store: %w", err)
	}
	return nil
}

func (s *JSONFileStore) update(ctx context.Context, op string, fn func(doc *stateDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(doc); err != nil {
		return err
	}

	if err := s.save(ctx, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// A missing file is an empty document.
func (s *JSONFileStore) load(ctx context.Context) (*stateDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &stateDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.path, err)
	}

	return decodeDocument(data)
}

func (s *JSONFileStore) save(ctx context.Context, doc *stateDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := doc.encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %q: %w", s.path, err)
	}
	return nil
}
