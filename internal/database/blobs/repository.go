// Package blobs stores opaque binary payloads.
//
// The store is purely additive: blobs are created and deleted, never updated.
// It keeps no reference counts; callers delete a blob together with its last
// referencing record.
package blobs

import (
	"errors"

	"gorm.io/gorm"

	"hiyori/internal/entities"
)

// ErrBlobNotFound is returned when no blob exists under the given id.
var ErrBlobNotFound = errors.New("blob not found")

// Repository handles all blob database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new blobs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a view of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Put stores content under a freshly allocated id. Identical bytes stored
// twice produce two distinct blobs; there is no content-hash deduplication.
func (r *Repository) Put(mime string, content []byte) (*entities.Blob, error) {
	blob := &entities.Blob{
		Mime:    mime,
		Content: content,
	}
	if err := r.db.Create(blob).Error; err != nil {
		return nil, err
	}
	return blob, nil
}

// Get retrieves a blob by id.
func (r *Repository) Get(id uint) (*entities.Blob, error) {
	var blob entities.Blob
	err := r.db.First(&blob, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

// Delete removes a blob by id.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Blob{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBlobNotFound
	}
	return nil
}

// DeleteOrphans removes blobs no page, book cover or collection thumbnail
// references. A mid-operation failure during a thumbnail swap can leak the
// replaced blob; the periodic sweep reclaims it here.
func (r *Repository) DeleteOrphans() (int64, error) {
	result := r.db.Exec(`
		DELETE FROM blobs
		WHERE id NOT IN (SELECT blob_id FROM pages)
		AND id NOT IN (SELECT cover_blob_id FROM books WHERE cover_blob_id IS NOT NULL)
		AND id NOT IN (SELECT thumbnail_blob_id FROM collections WHERE thumbnail_blob_id IS NOT NULL)
	`)
	return result.RowsAffected, result.Error
}
