package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/repository"
)

// GormStore persists the catalog in a SQL database. A batch is a database
// transaction; ForceSave commits it and immediately opens the next one.
type GormStore struct {
	db     *gorm.DB
	logger interfaces.Logger

	// mu guards tx and depth. Statements hold the read lock for their whole
	// round trip so a commit never races an in-flight write.
	mu    sync.RWMutex
	tx    *gorm.DB
	depth int
}

// NewGormStore creates a store over an already migrated database.
func NewGormStore(db *gorm.DB, logger interfaces.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// conn must be called with mu held.
func (s *GormStore) conn() *gorm.DB {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// UpsertMediaItem inserts or updates item by its natural key and returns
// the stored id. item.ID and item.CreatedAt are set on return.
func (s *GormStore) UpsertMediaItem(ctx context.Context, item *domain.MediaItem) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db := s.conn()

	existing, err := repository.FindOneBy[MediaItemModel](ctx, db,
		"source_id = ? AND library_id = ? AND provider_item_id = ?",
		item.SourceID, item.LibraryID, item.ProviderItemID)
	if err != nil && !pkgerrors.IsNotFound(err) {
		return "", fmt.Errorf("failed to look up media item: %w", err)
	}

	model := toItemModel(item)
	if existing != nil {
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
		if err := repository.Update(ctx, db, model); err != nil {
			return "", fmt.Errorf("failed to update media item: %w", err)
		}
	} else {
		model.ID = uuid.New().String()
		if err := repository.Create(ctx, db, model); err != nil {
			return "", fmt.Errorf("failed to create media item: %w", err)
		}
	}

	item.ID = model.ID
	item.CreatedAt = model.CreatedAt
	item.UpdatedAt = model.UpdatedAt
	return model.ID, nil
}

// GetMediaItems returns items matching filter ordered by title.
func (s *GormStore) GetMediaItems(ctx context.Context, filter ItemFilter) ([]*domain.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := s.conn().WithContext(ctx).Model(&MediaItemModel{})
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.LibraryID != "" {
		query = query.Where("library_id = ?", filter.LibraryID)
	}
	if filter.ProviderItemID != "" {
		query = query.Where("provider_item_id = ?", filter.ProviderItemID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []MediaItemModel
	if err := query.Order("title, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list media items: %w", err)
	}

	items := make([]*domain.MediaItem, len(models))
	for i := range models {
		items[i] = models[i].toDomain()
	}
	return items, nil
}

// DeleteMediaItem removes a stored item.
func (s *GormStore) DeleteMediaItem(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := repository.Delete[MediaItemModel](ctx, s.conn(), id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
		}
		return fmt.Errorf("failed to delete media item: %w", err)
	}
	return nil
}

// StartBatch opens a transaction, or joins the one already open.
func (s *GormStore) StartBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		tx := s.db.WithContext(context.WithoutCancel(ctx)).Begin()
		if tx.Error != nil {
			return fmt.Errorf("failed to begin batch: %w", tx.Error)
		}
		s.tx = tx
	}
	s.depth++
	return nil
}

// EndBatch commits when the outermost batch ends.
func (s *GormStore) EndBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		return domain.ErrBatchNotStarted
	}
	s.depth--
	if s.depth > 0 {
		return nil
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// ForceSave commits the open batch and starts a new transaction so the
// batch stays open. Outside a batch every statement is already durable.
func (s *GormStore) ForceSave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	if err := s.tx.Commit().Error; err != nil {
		s.tx = nil
		s.depth = 0
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	tx := s.db.WithContext(context.WithoutCancel(ctx)).Begin()
	if tx.Error != nil {
		s.tx = nil
		s.depth = 0
		return fmt.Errorf("failed to reopen batch: %w", tx.Error)
	}
	s.tx = tx
	s.logger.Debug("Checkpoint committed")
	return nil
}

// GetSource returns scan bookkeeping for a source.
func (s *GormStore) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, err := repository.FindByID[SourceModel](ctx, s.conn(), id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
		}
		return nil, err
	}
	return model.toDomain(), nil
}

// RegisterSource records a configured source, keeping its scan time.
func (s *GormStore) RegisterSource(ctx context.Context, source domain.Source) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model := &SourceModel{ID: source.ID, Type: string(source.Type), Name: source.Name}
	return s.conn().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "name", "updated_at"}),
	}).Create(model).Error
}

// UpdateSourceScanTime stamps the source's last successful scan.
func (s *GormStore) UpdateSourceScanTime(ctx context.Context, sourceID string, scannedAt time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := scannedAt.UTC()
	model := &SourceModel{ID: sourceID, LastScanAt: &now}
	err := s.conn().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_scan_at", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to update source scan time: %w", err)
	}
	return nil
}
