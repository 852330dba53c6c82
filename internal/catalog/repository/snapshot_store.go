package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

type snapshot struct {
	Version int                 `json:"version"`
	SavedAt time.Time           `json:"saved_at"`
	Sources []*domain.Source    `json:"sources"`
	Items   []*domain.MediaItem `json:"items"`
}

const snapshotVersion = 1

// SnapshotStore keeps the catalog in memory and serializes the whole of it
// to a JSON file. Outside a batch every mutation is written through; inside
// a batch writes are deferred to ForceSave or the outermost EndBatch.
type SnapshotStore struct {
	path   string
	logger interfaces.Logger

	mu      sync.RWMutex
	items   map[string]*domain.MediaItem
	byKey   map[domain.ItemKey]string
	sources map[string]*domain.Source
	depth   int
	dirty   bool
	saves   int
}

// NewSnapshotStore loads path if it exists. An empty path keeps the
// catalog in memory only.
func NewSnapshotStore(path string, logger interfaces.Logger) (*SnapshotStore, error) {
	s := &SnapshotStore{
		path:    path,
		logger:  logger,
		items:   make(map[string]*domain.MediaItem),
		byKey:   make(map[domain.ItemKey]string),
		sources: make(map[string]*domain.Source),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	for _, item := range snap.Items {
		s.items[item.ID] = item
		s.byKey[item.Key()] = item.ID
	}
	for _, src := range snap.Sources {
		s.sources[src.ID] = src
	}

	logger.Info("Loaded catalog snapshot",
		interfaces.String("path", path),
		interfaces.Int("items", len(s.items)),
		interfaces.Int("sources", len(s.sources)))
	return s, nil
}

// SaveCount reports how many times the snapshot has been written.
func (s *SnapshotStore) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func cloneItem(item *domain.MediaItem) *domain.MediaItem {
	c := *item
	c.AudioTracks = append([]domain.AudioTrack(nil), item.AudioTracks...)
	c.Versions = append([]domain.MediaVersion(nil), item.Versions...)
	return &c
}

// UpsertMediaItem inserts or replaces item by its natural key. item.ID and
// item.CreatedAt are set on return.
func (s *SnapshotStore) UpsertMediaItem(ctx context.Context, item *domain.MediaItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := cloneItem(item)
	if id, ok := s.byKey[item.Key()]; ok {
		stored.ID = id
		stored.CreatedAt = s.items[id].CreatedAt
	} else {
		stored.ID = uuid.New().String()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.items[stored.ID] = stored
	s.byKey[stored.Key()] = stored.ID

	item.ID = stored.ID
	item.CreatedAt = stored.CreatedAt
	item.UpdatedAt = stored.UpdatedAt
	return stored.ID, s.mutated()
}

// GetMediaItems returns copies of matching items ordered by title.
func (s *SnapshotStore) GetMediaItems(ctx context.Context, filter ItemFilter) ([]*domain.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*domain.MediaItem
	for _, item := range s.items {
		if filter.matches(item) {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

// DeleteMediaItem removes a stored item.
func (s *SnapshotStore) DeleteMediaItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	delete(s.items, id)
	delete(s.byKey, item.Key())
	return s.mutated()
}

func (s *SnapshotStore) StartBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth++
	return nil
}

// EndBatch writes the snapshot when the outermost batch ends with unsaved
// changes.
func (s *SnapshotStore) EndBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		return domain.ErrBatchNotStarted
	}
	s.depth--
	if s.depth == 0 && s.dirty {
		return s.save()
	}
	return nil
}

// ForceSave writes the snapshot now if anything changed since the last write.
func (s *SnapshotStore) ForceSave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.save()
}

func (s *SnapshotStore) RegisterSource(ctx context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sources[source.ID]; ok {
		source.LastScanAt = existing.LastScanAt
	}
	s.sources[source.ID] = &source
	return s.mutated()
}

func (s *SnapshotStore) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	c := *src
	return &c, nil
}

func (s *SnapshotStore) UpdateSourceScanTime(ctx context.Context, sourceID string, scannedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := scannedAt.UTC()
	src, ok := s.sources[sourceID]
	if !ok {
		src = &domain.Source{ID: sourceID}
		s.sources[sourceID] = src
	}
	src.LastScanAt = &at
	return s.mutated()
}

// mutated must be called with mu held.
func (s *SnapshotStore) mutated() error {
	s.dirty = true
	if s.depth > 0 {
		return nil
	}
	return s.save()
}

// save must be called with mu held.
func (s *SnapshotStore) save() error {
	s.dirty = false
	if s.path == "" {
		s.saves++
		return nil
	}

	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Items:   make([]*domain.MediaItem, 0, len(s.items)),
		Sources: make([]*domain.Source, 0, len(s.sources)),
	}
	for _, item := range s.items {
		snap.Items = append(snap.Items, item)
	}
	for _, src := range s.sources {
		snap.Sources = append(snap.Sources, src)
	}
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].ID < snap.Items[j].ID })
	sort.Slice(snap.Sources, func(i, j int) bool { return snap.Sources[i].ID < snap.Sources[j].ID })

	data, err := json.Marshal(snap)
	if err != nil {
		s.dirty = true
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.dirty = true
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		s.dirty = true
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.saves++
	s.logger.Debug("Catalog snapshot written",
		interfaces.String("path", s.path),
		interfaces.Int("items", len(snap.Items)))
	return nil
}
