// Package repository holds generic GORM helpers that translate driver
// errors into pkg/errors types.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
)

// Create inserts entity, mapping unique violations to a conflict error.
func Create[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeConflict, "entity already exists", err)
		}
		return err
	}
	return nil
}

// FindByID loads the entity whose primary key is id.
func FindByID[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var entity T
	if err := db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("entity not found")
		}
		return nil, err
	}
	return &entity, nil
}

// FindOneBy loads a single entity matching query.
func FindOneBy[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := db.WithContext(ctx).Where(query, args...).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("entity not found")
		}
		return nil, err
	}
	return &entity, nil
}

// Update saves every field of entity.
func Update[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	return db.WithContext(ctx).Save(entity).Error
}

// Delete removes the entity whose primary key is id.
func Delete[T any](ctx context.Context, db *gorm.DB, id string) error {
	var entity T
	result := db.WithContext(ctx).Delete(&entity, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFound("entity not found for deletion")
	}
	return nil
}

// Count returns the number of rows matching query. An empty query counts
// the whole table.
func Count[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (int64, error) {
	var count int64
	var entity T
	q := db.WithContext(ctx).Model(&entity)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
