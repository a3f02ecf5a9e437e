package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hiyori/internal/database/blobs"
	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/ingest"
)

// cacheControl marks page images and thumbnails as long-lived: blobs are
// immutable, so a month of client caching is safe.
const cacheControl = "max-age=2630000, no-transform"

// ErrorResponse is the standard error body for all API failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto status codes. Referential and input
// precondition failures are the caller's fault (4xx); anything unrecognized
// is a store failure (5xx).
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, collections.ErrInvalidParent),
		errors.Is(err, collections.ErrHasChildren),
		errors.Is(err, ingest.ErrInvalidFormat),
		errors.Is(err, ingest.ErrCorruptArchive),
		errors.Is(err, ingest.ErrMissingTitle):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, collections.ErrCollectionNotFound),
		errors.Is(err, collections.ErrNoThumbnail),
		errors.Is(err, books.ErrBookNotFound),
		errors.Is(err, books.ErrPageNotFound),
		errors.Is(err, books.ErrNoCover),
		errors.Is(err, blobs.ErrBlobNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	default:
		logrus.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// serveBlob writes blob bytes with the long-lived cache hint. The blob is
// fully resolved by the caller before this point, so a failing request never
// streams partial content.
func serveBlob(c *gin.Context, mime string, content []byte) {
	c.Header("Cache-Control", cacheControl)
	c.Data(http.StatusOK, mime, content)
}
