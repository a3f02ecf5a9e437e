package collections

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hiyori/internal/database/blobs"
	"hiyori/internal/database/books"
	"hiyori/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *blobs.Repository, *books.Repository, func()) {
	dbPath := "./test_collections_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Blob{},
		&entities.Collection{},
		&entities.Book{},
		&entities.Page{},
	)
	require.NoError(t, err)

	blobRepo := blobs.NewRepository(db)
	bookRepo := books.NewRepository(db, blobRepo)
	repo := NewRepository(db, blobRepo, bookRepo)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, blobRepo, bookRepo, cleanup
}

func TestRepository_CreateRoot(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, collection.ID)
	assert.Equal(t, "Library", collection.Name)
	assert.Nil(t, collection.ParentID)
	assert.Nil(t, collection.ThumbnailBlobID)
}

func TestRepository_CreateChild(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	parent, err := repo.Create("Library", nil)
	require.NoError(t, err)

	child, err := repo.Create("Novels", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
}

func TestRepository_CreateInvalidParent(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	missing := "does-not-exist"
	_, err := repo.Create("Novels", &missing)
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestRepository_ListRootsAndChildren(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	zoo, err := repo.Create("Zoo", nil)
	require.NoError(t, err)
	arc, err := repo.Create("Archive", nil)
	require.NoError(t, err)
	_, err = repo.Create("Mammals", &zoo.ID)
	require.NoError(t, err)

	roots, err := repo.ListRoots()
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, arc.ID, roots[0].ID) // name order
	assert.Equal(t, zoo.ID, roots[1].ID)

	children, err := repo.ListChildren(zoo.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Mammals", children[0].Name)
}

func TestRepository_SetThumbnail(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)
	require.NoError(t, err)

	require.NoError(t, repo.SetThumbnail(collection.ID, "image/png", []byte("thumb")))

	blob, err := repo.GetThumbnail(collection.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.Mime)
	assert.Equal(t, []byte("thumb"), blob.Content)
}

func TestRepository_SetThumbnail_SwapDeletesOld(t *testing.T) {
	repo, blobRepo, _, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)
	require.NoError(t, err)

	require.NoError(t, repo.SetThumbnail(collection.ID, "image/png", []byte("old")))
	old, err := repo.GetThumbnail(collection.ID)
	require.NoError(t, err)

	require.NoError(t, repo.SetThumbnail(collection.ID, "image/jpeg", []byte("new")))

	current, err := repo.GetThumbnail(collection.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", current.Mime)
	assert.Equal(t, []byte("new"), current.Content)

	_, err = blobRepo.Get(old.ID)
	assert.ErrorIs(t, err, blobs.ErrBlobNotFound)
}

func TestRepository_SetThumbnail_Missing(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SetThumbnail("missing", "image/png", []byte("thumb"))
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestRepository_GetThumbnail_None(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)
	require.NoError(t, err)

	_, err = repo.GetThumbnail(collection.ID)
	assert.ErrorIs(t, err, ErrNoThumbnail)
}

func TestRepository_Delete_Leaf(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(collection.ID))

	_, err = repo.Get(collection.ID)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestRepository_Delete_WithChildren(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	a, err := repo.Create("A", nil)
	require.NoError(t, err)
	b, err := repo.Create("B", &a.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(a.ID), ErrHasChildren)

	// Still retrievable after the rejected delete.
	_, err = repo.Get(a.ID)
	require.NoError(t, err)

	// Bottom-up deletion succeeds.
	require.NoError(t, repo.Delete(b.ID))
	require.NoError(t, repo.Delete(a.ID))
}

func TestRepository_Delete_CascadesBooksAndThumbnail(t *testing.T) {
	repo, blobRepo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	collection, err := repo.Create("Library", nil)
	require.NoError(t, err)
	require.NoError(t, repo.SetThumbnail(collection.ID, "image/png", []byte("thumb")))
	thumb, err := repo.GetThumbnail(collection.ID)
	require.NoError(t, err)

	book, err := bookRepo.CreateBook("Moby Dick", collection.ID, nil, []books.PageInput{
		{Mime: "image/jpeg", Content: []byte("page-0"), FileName: "001.jpg"},
	})
	require.NoError(t, err)
	pages, err := bookRepo.GetPages(book.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(collection.ID))

	_, err = bookRepo.GetBook(book.ID)
	assert.ErrorIs(t, err, books.ErrBookNotFound)
	_, err = blobRepo.Get(pages[0].BlobID)
	assert.ErrorIs(t, err, blobs.ErrBlobNotFound)
	_, err = blobRepo.Get(thumb.ID)
	assert.ErrorIs(t, err, blobs.ErrBlobNotFound)
}

func TestRepository_Delete_Missing(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	assert.ErrorIs(t, repo.Delete("missing"), ErrCollectionNotFound)
}
