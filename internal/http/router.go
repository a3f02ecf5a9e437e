package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"hiyori/internal/auth"
	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	"hiyori/internal/ingest"
)

// RouterConfig carries every dependency the router wires into controllers.
type RouterConfig struct {
	Collections    *collections.Repository
	Books          *books.Repository
	Ingest         *ingest.Service
	AuthMiddleware *auth.Middleware
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Authorization", "Content-Type"}
	router.Use(cors.New(corsCfg))

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	collectionsController := NewCollectionsController(cfg.Collections, cfg.Books)
	booksController := NewBooksController(cfg.Books, cfg.Ingest)

	collectionRoutes := router.Group("/collections")
	{
		collectionRoutes.POST("", collectionsController.Create)
		collectionRoutes.GET("", collectionsController.List)
		collectionRoutes.GET("/:id/books", collectionsController.ListBooks)
		collectionRoutes.POST("/:id/thumbnail", collectionsController.SetThumbnail)
		collectionRoutes.GET("/:id/thumbnail", collectionsController.GetThumbnail)
		collectionRoutes.DELETE("/:id", collectionsController.Delete)
	}

	bookRoutes := router.Group("/books")
	{
		bookRoutes.POST("/from_epub", booksController.FromEPUB)
		bookRoutes.GET("/:id", booksController.Get)
		bookRoutes.GET("/:id/cover", booksController.GetCover)
		bookRoutes.GET("/:id/images/:page_id", booksController.GetPageImage)
		bookRoutes.DELETE("/:id", booksController.Delete)
	}

	return router
}
