// Package ingest turns an uploaded EPUB archive into a persisted book with
// ordered page images.
package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/entities"
	"hiyori/internal/epub"
)

var (
	// ErrInvalidFormat is returned when an upload declares a content type other than EPUB.
	ErrInvalidFormat = errors.New("file is not an epub")
	// ErrCorruptArchive is returned when the archive cannot be parsed.
	ErrCorruptArchive = errors.New("epub archive could not be parsed")
	// ErrMissingTitle is returned when the package metadata declares no title.
	// A book that cannot be named is rejected rather than stored as untitled.
	ErrMissingTitle = errors.New("epub declares no title")
)

// Service drives the ingestion pipeline against the collection tree and the
// book catalog.
type Service struct {
	collections *collections.Repository
	books       *books.Repository
}

// NewService creates a new ingestion service.
func NewService(collectionRepo *collections.Repository, bookRepo *books.Repository) *Service {
	return &Service{collections: collectionRepo, books: bookRepo}
}

// FromEPUB validates the upload, parses the archive and materializes a book
// in the target collection. Page order is the lexicographic order of the
// image resource paths inside the archive; the declared cover is stored on
// the book itself and excluded from the page sequence. Nothing is persisted
// until the final materialize step, which runs as one transaction.
func (s *Service) FromEPUB(declaredType string, r io.ReaderAt, size int64, collectionID string) (*entities.Book, []entities.Page, error) {
	if declaredType != "" && declaredType != epub.MimeType {
		return nil, nil, ErrInvalidFormat
	}

	if _, err := s.collections.Get(collectionID); err != nil {
		return nil, nil, err
	}

	doc, err := epub.Open(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	title, ok := doc.Title()
	if !ok {
		return nil, nil, ErrMissingTitle
	}

	cover, pages, err := s.extract(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	book, err := s.books.CreateBook(title, collectionID, cover, pages)
	if err != nil {
		return nil, nil, err
	}

	created, err := s.books.GetPages(book.ID)
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"book":       book.ID,
		"collection": collectionID,
		"pages":      len(created),
	}).Infof("ingested %q", title)

	return book, created, nil
}

// extract reads the cover and page images out of the archive. The declared
// cover resource is dropped from the page list even when its path also shows
// up among the enumerated images, so it is stored exactly once.
func (s *Service) extract(doc *epub.Document) (*books.PageInput, []books.PageInput, error) {
	var cover *books.PageInput
	coverPath := ""
	if res, ok := doc.Cover(); ok {
		content, err := doc.Read(res)
		if err != nil {
			return nil, nil, err
		}
		cover = &books.PageInput{
			Mime:     res.MediaType,
			Content:  content,
			FileName: res.Path,
		}
		coverPath = res.Path
	}

	var pages []books.PageInput
	for _, res := range doc.Images() {
		if res.Path == coverPath {
			continue
		}
		content, err := doc.Read(res)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, books.PageInput{
			Mime:     res.MediaType,
			Content:  content,
			FileName: res.Path,
		})
	}
	return cover, pages, nil
}
