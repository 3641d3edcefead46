// Package api exposes PriceNest over HTTP/JSON with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/datastore"
	"github.com/lepinkainen/pricenest/internal/importer"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/refresh"
)

// BookSearch runs a book search against the selected source.
type BookSearch interface {
	Search(ctx context.Context, query string, source model.BookSource) (catalog.BookSearchResult, error)
}

// Handlers holds the dependencies of every route.
type Handlers struct {
	Store     datastore.Store
	Importer  *importer.Importer
	Refresher *refresh.Refresher
	Books     BookSearch
	Movies    catalog.MovieSearcher
}

// CORSMiddleware allows origin to call the API from a browser and answers
// preflight requests.
func CORSMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger logs every request through slog once it has been served.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}

// SetupRouter builds the gin engine with every API route.
func SetupRouter(h *Handlers, corsOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORSMiddleware(corsOrigin))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.GET("/categories", h.ListCategories)
		api.POST("/categories", h.CreateCategory)
		api.PUT("/categories/:id", h.UpdateCategory)
		api.DELETE("/categories/:id", h.DeleteCategory)
		api.POST("/categories/:id/items", h.CreateItem)
		api.POST("/categories/:id/refresh-prices", h.RefreshCategoryPrices)

		api.PUT("/items/:id", h.UpdateItem)
		api.DELETE("/items/:id", h.DeleteItem)
		api.PATCH("/items/:id/bought", h.ToggleBought)
		api.PATCH("/items/:id/refresh-price", h.RefreshItemPrice)
		api.GET("/items/:id/price-history", h.PriceHistory)

		api.GET("/books/search", h.SearchBooks)

		movies := api.Group("/movies")
		{
			movies.POST("/search", h.SearchMovies)
			movies.POST("/add-manual-movie", h.AddManualMovie)
			movies.POST("/preview-csv", h.PreviewCSV)
			movies.POST("/import-csv", h.ImportCSV)

			imports := movies.Group("/imports/:session")
			{
				imports.GET("", h.GetImport)
				imports.DELETE("/rows/:row", h.DeleteImportRow)
				imports.POST("/rows/bulk-delete", h.BulkDeleteImportRows)
				imports.POST("/rows/:row/search", h.SearchImportRow)
				imports.POST("/rows/:row/manual", h.ManualImportRow)
				imports.POST("/rows/:row/override", h.OverrideImportRow)
				imports.POST("/confirm", h.ConfirmImport)
			}

			movies.GET("/pending", h.ListPending)
			movies.POST("/process-pending", h.ProcessPending)
		}
	}

	return router
}
