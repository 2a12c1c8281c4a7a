package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pauljones0/korting/internal/models"
)

// JSONStore keeps all deals in one JSON array on disk. Every write rewrites
// the file through a temporary file and a rename.
type JSONStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewJSONStore returns a store backed by path. A missing file is an empty store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, now: time.Now}
}

func (s *JSONStore) load() ([]models.Deal, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deals file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var deals []models.Deal
	if err := json.Unmarshal(data, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode deals file %s: %w", s.path, err)
	}
	return deals, nil
}

func (s *JSONStore) save(deals []models.Deal) error {
	if deals == nil {
		deals = []models.Deal{}
	}
	data, err := json.MarshalIndent(deals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deals: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".deals-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write deals: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write deals: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace deals file: %w", err)
	}
	return nil
}

func (s *JSONStore) List(_ context.Context, f models.Filter) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals, err := s.load()
	if err != nil {
		return nil, err
	}
	return Apply(deals, f, s.now()), nil
}

func (s *JSONStore) Get(_ context.Context, id string) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals, err := s.load()
	if err != nil {
		return models.Deal{}, err
	}
	for _, d := range deals {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Deal{}, models.ErrDealNotFound
}

func (s *JSONStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, models.ErrDealNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *JSONStore) InsertAll(_ context.Context, incoming []models.Deal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals, err := s.load()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(deals))
	for _, d := range deals {
		seen[d.ID] = struct{}{}
	}
	added := 0
	for _, d := range incoming {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		deals = append(deals, d)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.save(deals)
}

func (s *JSONStore) Update(_ context.Context, id string, next models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals, err := s.load()
	if err != nil {
		return err
	}
	for i, d := range deals {
		if d.ID == id {
			deals[i] = d.Replace(next)
			return s.save(deals)
		}
	}
	return models.ErrDealNotFound
}

func (s *JSONStore) Delete(_ context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deals, err := s.load()
	if err != nil {
		return 0, err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := deals[:0]
	for _, d := range deals {
		if _, ok := drop[d.ID]; !ok {
			kept = append(kept, d)
		}
	}
	removed := len(deals) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(kept)
}

func (s *JSONStore) Count(ctx context.Context, f models.Filter) (int, error) {
	f.Limit, f.Offset = 0, 0
	deals, err := s.List(ctx, f)
	return len(deals), err
}

func (s *JSONStore) Close() error { return nil }
