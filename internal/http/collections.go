package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/entities"
)

// CollectionsController handles the collection tree endpoints.
type CollectionsController struct {
	collections *collections.Repository
	books       *books.Repository
}

// NewCollectionsController creates a new CollectionsController.
func NewCollectionsController(collectionRepo *collections.Repository, bookRepo *books.Repository) *CollectionsController {
	return &CollectionsController{
		collections: collectionRepo,
		books:       bookRepo,
	}
}

type createCollectionRequest struct {
	Name   string  `json:"name" binding:"required"`
	Parent *string `json:"parent"`
}

// collectionView adds the has_thumbnail flag clients use to decide whether to
// fetch one.
type collectionView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ParentID     *string `json:"parent_id,omitempty"`
	HasThumbnail bool    `json:"has_thumbnail"`
}

func viewOf(collection entities.Collection) collectionView {
	return collectionView{
		ID:           collection.ID,
		Name:         collection.Name,
		ParentID:     collection.ParentID,
		HasThumbnail: collection.HasThumbnail(),
	}
}

// Create handles POST /collections.
func (controller *CollectionsController) Create(c *gin.Context) {
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	collection, err := controller.collections.Create(req.Name, req.Parent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(*collection))
}

// List handles GET /collections?parent=<id>. Without a parent it lists the
// roots of the forest.
func (controller *CollectionsController) List(c *gin.Context) {
	parent := c.Query("parent")

	var (
		listed []entities.Collection
		err    error
	)
	if parent == "" {
		listed, err = controller.collections.ListRoots()
	} else {
		listed, err = controller.collections.ListChildren(parent)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]collectionView, 0, len(listed))
	for _, collection := range listed {
		views = append(views, viewOf(collection))
	}
	c.JSON(http.StatusOK, views)
}

// ListBooks handles GET /collections/:id/books.
func (controller *CollectionsController) ListBooks(c *gin.Context) {
	collection, err := controller.collections.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	listed, err := controller.books.ListByCollection(collection.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listed)
}

// SetThumbnail handles POST /collections/:id/thumbnail (multipart).
func (controller *CollectionsController) SetThumbnail(c *gin.Context) {
	header, err := c.FormFile("thumbnail")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "thumbnail file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	if err := controller.collections.SetThumbnail(c.Param("id"), mime, content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "thumbnail updated"})
}

// GetThumbnail handles GET /collections/:id/thumbnail[?default]. With the
// default flag a collection without a thumbnail gets the built-in placeholder
// instead of a 404.
func (controller *CollectionsController) GetThumbnail(c *gin.Context) {
	blob, err := controller.collections.GetThumbnail(c.Param("id"))
	if err != nil {
		_, wantDefault := c.GetQuery("default")
		if wantDefault && errors.Is(err, collections.ErrNoThumbnail) {
			serveBlob(c, "image/png", placeholderThumbnail())
			return
		}
		respondError(c, err)
		return
	}
	serveBlob(c, blob.Mime, blob.Content)
}

// Delete handles DELETE /collections/:id.
func (controller *CollectionsController) Delete(c *gin.Context) {
	if err := controller.collections.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "collection deleted"})
}
