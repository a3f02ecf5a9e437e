package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hiyori/internal/auth"
	"hiyori/internal/database/blobs"
	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/entities"
	"hiyori/internal/ingest"
)

const testSecret = "test-secret"

type testServer struct {
	router      *gin.Engine
	blobs       *blobs.Repository
	books       *books.Repository
	collections *collections.Repository
	db          *gorm.DB
}

func setupServer(t *testing.T) (*testServer, func()) {
	gin.SetMode(gin.TestMode)
	dbPath := "./test_http_" + t.Name() + ".db"

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
	collectionRepo := collections.NewRepository(db, blobRepo, bookRepo)

	router := NewRouter(RouterConfig{
		Collections:    collectionRepo,
		Books:          bookRepo,
		Ingest:         ingest.NewService(collectionRepo, bookRepo),
		AuthMiddleware: auth.NewMiddleware(testSecret),
	})

	server := &testServer{
		router:      router,
		blobs:       blobRepo,
		books:       bookRepo,
		collections: collectionRepo,
		db:          db,
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return server, cleanup
}

func (s *testServer) request(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", testSecret)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.request(t, http.MethodPost, path, bytes.NewReader(raw), "application/json")
}

// multipartUpload builds a multipart body with one file part (with an
// explicit content type) and optional plain fields.
func multipartUpload(t *testing.T, field, filename, fileType string, content []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	header["Content-Type"] = []string{fileType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouter_RequestsWithoutSecretRejected(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
