// Package books implements the book and page catalog.
//
// Books are created only as the final step of an EPUB ingestion and own their
// pages; pages are immutable once written. Every multi-row sequence (create,
// cascade delete) runs inside one transaction so a book is never visible with
// half its pages.
package books

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hiyori/internal/database/blobs"
	"hiyori/internal/entities"
)

var (
	// ErrBookNotFound is returned when no book exists under the given id.
	ErrBookNotFound = errors.New("book not found")
	// ErrPageNotFound is returned when a page id does not resolve within the book.
	ErrPageNotFound = errors.New("page not found")
	// ErrCollectionNotFound is returned when the target collection of a new book does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrNoCover is returned for books whose archive declared no cover image.
	ErrNoCover = errors.New("book has no cover")
)

// PageInput is one image handed to CreateBook, in final page order.
type PageInput struct {
	Mime     string
	Content  []byte
	FileName string
}

// Repository handles all book and page database operations.
type Repository struct {
	db    *gorm.DB
	blobs *blobs.Repository
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, blobRepo *blobs.Repository) *Repository {
	return &Repository{db: db, blobs: blobRepo}
}

// CreateBook materializes a book with its cover and pages in one transaction.
// Page numbers are assigned densely from zero in input order. This is the sole
// write path for pages.
func (r *Repository) CreateBook(title, collectionID string, cover *PageInput, pages []PageInput) (*entities.Book, error) {
	book := &entities.Book{
		ID:           uuid.NewString(),
		Title:        title,
		CollectionID: collectionID,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var collection entities.Collection
		if err := tx.First(&collection, "id = ?", collectionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCollectionNotFound
			}
			return err
		}

		txBlobs := r.blobs.WithTx(tx)

		if cover != nil {
			blob, err := txBlobs.Put(cover.Mime, cover.Content)
			if err != nil {
				return err
			}
			book.CoverBlobID = &blob.ID
		}

		if err := tx.Create(book).Error; err != nil {
			return err
		}

		for i, page := range pages {
			blob, err := txBlobs.Put(page.Mime, page.Content)
			if err != nil {
				return err
			}
			record := &entities.Page{
				ID:         uuid.NewString(),
				BookID:     book.ID,
				PageNumber: i,
				BlobID:     blob.ID,
				FileName:   page.FileName,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetBook retrieves a book by id.
func (r *Repository) GetBook(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetPages returns a book's pages ordered by page number.
func (r *Repository) GetPages(bookID string) ([]entities.Page, error) {
	var pages []entities.Page
	err := r.db.Where("book_id = ?", bookID).Order("page_number ASC").Find(&pages).Error
	return pages, err
}

// ListByCollection returns the books of a collection ordered by title, so
// repeated listings are stable for the UI.
func (r *Repository) ListByCollection(collectionID string) ([]entities.Book, error) {
	var result []entities.Book
	err := r.db.Where("collection_id = ?", collectionID).Order("title ASC").Find(&result).Error
	return result, err
}

// GetPage retrieves a single page, scoped to the book so a valid page id under
// the wrong book still yields not-found.
func (r *Repository) GetPage(bookID, pageID string) (*entities.Page, error) {
	var page entities.Page
	err := r.db.First(&page, "id = ? AND book_id = ?", pageID, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPageContent resolves a page's image bytes through its blob reference.
func (r *Repository) GetPageContent(pageID string) (*entities.Blob, error) {
	var page entities.Page
	err := r.db.First(&page, "id = ?", pageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.blobs.Get(page.BlobID)
}

// GetCover resolves a book's cover image.
func (r *Repository) GetCover(bookID string) (*entities.Blob, error) {
	book, err := r.GetBook(bookID)
	if err != nil {
		return nil, err
	}
	if book.CoverBlobID == nil {
		return nil, ErrNoCover
	}
	return r.blobs.Get(*book.CoverBlobID)
}

// DeleteBook removes a book with everything it owns, leaf-first: page blobs,
// page rows, the cover blob, then the book row, all in one transaction.
func (r *Repository) DeleteBook(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return r.deleteInTx(tx, id)
	})
}

// DeleteByCollection cascades every book of a collection inside the caller's
// transaction. Used by the collection tree manager's own cascade.
func (r *Repository) DeleteByCollection(tx *gorm.DB, collectionID string) error {
	var ids []string
	if err := tx.Model(&entities.Book{}).Where("collection_id = ?", collectionID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, bookID := range ids {
		if err := r.deleteInTx(tx, bookID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) deleteInTx(tx *gorm.DB, id string) error {
	var book entities.Book
	if err := tx.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	var blobIDs []uint
	if err := tx.Model(&entities.Page{}).Where("book_id = ?", id).Pluck("blob_id", &blobIDs).Error; err != nil {
		return err
	}
	if len(blobIDs) > 0 {
		if err := tx.Delete(&entities.Blob{}, blobIDs).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("book_id = ?", id).Delete(&entities.Page{}).Error; err != nil {
		return err
	}
	if book.CoverBlobID != nil {
		if err := tx.Delete(&entities.Blob{}, *book.CoverBlobID).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&entities.Book{}, "id = ?", id).Error
}
