package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/ingest"
)

// BooksController handles book and page endpoints.
type BooksController struct {
	books  *books.Repository
	ingest *ingest.Service
}

// NewBooksController creates a new BooksController.
func NewBooksController(bookRepo *books.Repository, ingestService *ingest.Service) *BooksController {
	return &BooksController{
		books:  bookRepo,
		ingest: ingestService,
	}
}

// FromEPUB handles POST /books/from_epub (multipart: epub file + collection
// id). Runs the full ingestion pipeline and answers with the created book and
// its ordered pages.
func (controller *BooksController) FromEPUB(c *gin.Context) {
	header, err := c.FormFile("epub")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "epub file is required"})
		return
	}
	collectionID := c.PostForm("collection")
	if collectionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "collection is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	// The zip directory sits at the end of the archive, so the upload has to
	// be buffered for random access before parsing can start.
	raw, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return
	}

	declaredType := header.Header.Get("Content-Type")

	book, pages, err := controller.ingest.FromEPUB(declaredType, bytes.NewReader(raw), int64(len(raw)), collectionID)
	if err != nil {
		// A missing target collection is a bad upload request here, not a
		// lookup on a collection resource.
		if errors.Is(err, collections.ErrCollectionNotFound) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"book": book, "images": pages})
}

// Get handles GET /books/:id, returning the book with its ordered pages.
func (controller *BooksController) Get(c *gin.Context) {
	book, err := controller.books.GetBook(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	pages, err := controller.books.GetPages(book.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book, "images": pages})
}

// GetPageImage handles GET /books/:id/images/:page_id.
func (controller *BooksController) GetPageImage(c *gin.Context) {
	page, err := controller.books.GetPage(c.Param("id"), c.Param("page_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	blob, err := controller.books.GetPageContent(page.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, blob.Mime, blob.Content)
}

// GetCover handles GET /books/:id/cover.
func (controller *BooksController) GetCover(c *gin.Context) {
	blob, err := controller.books.GetCover(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, blob.Mime, blob.Content)
}

// Delete handles DELETE /books/:id, cascading pages and blobs.
func (controller *BooksController) Delete(c *gin.Context) {
	if err := controller.books.DeleteBook(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}
