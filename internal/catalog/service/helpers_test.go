package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// fakeAdapter serves libraries from memory, offset-paged.
type fakeAdapter struct {
	mu        sync.Mutex
	libraries map[string][]*domain.MediaMetadata
	caps      provider.Capabilities
	fetchErr  map[string]error
	panicOn   string
	requests  []provider.PageRequest
	block     chan struct{}
	started   chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		libraries: make(map[string][]*domain.MediaMetadata),
		fetchErr:  make(map[string]error),
	}
}

func (f *fakeAdapter) set(libraryID string, items ...*domain.MediaMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libraries[libraryID] = items
}

func (f *fakeAdapter) GetLibraries(context.Context) ([]domain.LibraryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{"lib-a", "lib-b"}
	var libs []domain.LibraryInfo
	for _, id := range ids {
		if _, ok := f.libraries[id]; ok {
			libs = append(libs, domain.LibraryInfo{ID: id, Name: id, Type: "movies"})
		}
	}
	return libs, nil
}

func (f *fakeAdapter) GetLibraryItems(ctx context.Context, libraryID string, req provider.PageRequest) (*provider.Page, error) {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if libraryID == f.panicOn {
		panic("adapter exploded")
	}
	if err := f.fetchErr[libraryID]; err != nil {
		return nil, err
	}
	items, ok := f.libraries[libraryID]
	if !ok {
		return nil, domain.ErrLibraryNotFound
	}

	start := min(req.Offset, len(items))
	end := min(start+req.Limit, len(items))
	return &provider.Page{Items: items[start:end], Total: len(items), Done: end >= len(items)}, nil
}

func (f *fakeAdapter) GetItemMetadata(_ context.Context, itemID string) (*domain.MediaMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, items := range f.libraries {
		for _, md := range items {
			if md.ProviderItemID == itemID {
				c := *md
				return &c, nil
			}
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeAdapter) Capabilities() provider.Capabilities {
	return f.caps
}

// countingStore counts durability calls and can fail upserts.
type countingStore struct {
	repository.Store
	mu          sync.Mutex
	forceSaves  int
	batches     int
	failUpsert  int // fail the nth upsert (1-based), 0 = never
	onUpsert    func(ctx context.Context, n int) error
	upserts     int
	scanUpdates int
}

func (s *countingStore) UpsertMediaItem(ctx context.Context, item *domain.MediaItem) (string, error) {
	s.mu.Lock()
	s.upserts++
	n := s.upserts
	s.mu.Unlock()
	if s.failUpsert > 0 && n == s.failUpsert {
		return "", errors.New("disk full")
	}
	if s.onUpsert != nil {
		if err := s.onUpsert(ctx, n); err != nil {
			return "", err
		}
	}
	return s.Store.UpsertMediaItem(ctx, item)
}

func (s *countingStore) StartBatch(ctx context.Context) error {
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()
	return s.Store.StartBatch(ctx)
}

func (s *countingStore) ForceSave(ctx context.Context) error {
	s.mu.Lock()
	s.forceSaves++
	s.mu.Unlock()
	return s.Store.ForceSave(ctx)
}

func (s *countingStore) UpdateSourceScanTime(ctx context.Context, sourceID string, scannedAt time.Time) error {
	s.mu.Lock()
	s.scanUpdates++
	s.mu.Unlock()
	return s.Store.UpdateSourceScanTime(ctx, sourceID, scannedAt)
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recorder) Handle(_ context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) EventType() string { return "*" }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func timePtr(t time.Time) *time.Time { return &t }
