// Package collections manages the folder tree books are organized in.
//
// Collections form a forest via a parent back-reference. The parent must exist
// before a child is created and there is no reparent operation, so the graph
// cannot grow a cycle. A collection with children cannot be deleted; deleting
// a leaf cascades its books and thumbnail blob in one transaction.
package collections

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hiyori/internal/database/blobs"
	"hiyori/internal/database/books"
	"hiyori/internal/entities"
)

var (
	// ErrCollectionNotFound is returned when no collection exists under the given id.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidParent is returned when the supplied parent id does not resolve.
	ErrInvalidParent = errors.New("parent collection does not exist")
	// ErrHasChildren is returned when deleting a collection that still has child collections.
	ErrHasChildren = errors.New("collection has child collections")
	// ErrNoThumbnail is returned for collections without a thumbnail.
	ErrNoThumbnail = errors.New("collection has no thumbnail")
)

// Repository handles all collection database operations.
type Repository struct {
	db    *gorm.DB
	blobs *blobs.Repository
	books *books.Repository
}

// NewRepository creates a new collections repository.
func NewRepository(db *gorm.DB, blobRepo *blobs.Repository, bookRepo *books.Repository) *Repository {
	return &Repository{db: db, blobs: blobRepo, books: bookRepo}
}

// Create adds a collection, as a root when parentID is nil. A new collection
// has no thumbnail.
func (r *Repository) Create(name string, parentID *string) (*entities.Collection, error) {
	if parentID != nil {
		var parent entities.Collection
		err := r.db.First(&parent, "id = ?", *parentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, err
		}
	}

	collection := &entities.Collection{
		ID:       uuid.NewString(),
		Name:     name,
		ParentID: parentID,
	}
	if err := r.db.Create(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

// Get retrieves a collection by id.
func (r *Repository) Get(id string) (*entities.Collection, error) {
	var collection entities.Collection
	err := r.db.First(&collection, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// ListRoots returns all collections without a parent, ordered by name.
func (r *Repository) ListRoots() ([]entities.Collection, error) {
	var result []entities.Collection
	err := r.db.Where("parent_id IS NULL").Order("name ASC").Find(&result).Error
	return result, err
}

// ListChildren returns the direct children of a collection, ordered by name.
func (r *Repository) ListChildren(parentID string) ([]entities.Collection, error) {
	var result []entities.Collection
	err := r.db.Where("parent_id = ?", parentID).Order("name ASC").Find(&result).Error
	return result, err
}

// SetThumbnail stores a new thumbnail blob, points the collection at it and
// then deletes the replaced blob. The new blob is durable and referenced
// before the old one goes away, so an interrupted swap can at worst leak the
// old blob, never leave a dangling reference.
func (r *Repository) SetThumbnail(id, mime string, content []byte) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var collection entities.Collection
		if err := tx.First(&collection, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCollectionNotFound
			}
			return err
		}

		previous := collection.ThumbnailBlobID

		blob, err := r.blobs.WithTx(tx).Put(mime, content)
		if err != nil {
			return err
		}
		if err := tx.Model(&collection).Update("thumbnail_blob_id", blob.ID).Error; err != nil {
			return err
		}

		if previous != nil {
			if err := r.blobs.WithTx(tx).Delete(*previous); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetThumbnail resolves a collection's thumbnail bytes.
func (r *Repository) GetThumbnail(id string) (*entities.Blob, error) {
	collection, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if collection.ThumbnailBlobID == nil {
		return nil, ErrNoThumbnail
	}
	return r.blobs.Get(*collection.ThumbnailBlobID)
}

// Delete removes a collection without children, cascading its books and
// finally its thumbnail blob, leaf-first in one transaction.
func (r *Repository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var collection entities.Collection
		if err := tx.First(&collection, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCollectionNotFound
			}
			return err
		}

		var children int64
		if err := tx.Model(&entities.Collection{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}

		if err := r.books.DeleteByCollection(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(&entities.Collection{}, "id = ?", id).Error; err != nil {
			return err
		}
		if collection.ThumbnailBlobID != nil {
			if err := r.blobs.WithTx(tx).Delete(*collection.ThumbnailBlobID); err != nil {
				return err
			}
		}
		return nil
	})
}
