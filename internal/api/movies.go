package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/importer"
	"github.com/lepinkainen/pricenest/internal/model"
)

// SearchBooks handles GET /api/books/search?query=&source=
func (h *Handlers) SearchBooks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		query = strings.TrimSpace(c.Query("q"))
	}
	if query == "" {
		badRequest(c, "search query is required")
		return
	}

	source := model.BookSource(c.DefaultQuery("source", string(model.BookSourceAuto)))
	if !source.Valid() {
		badRequest(c, "invalid source %q", source)
		return
	}

	result, err := h.Books.Search(c.Request.Context(), query, source)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type movieSearchRequest struct {
	Query string `json:"query"`
}

// SearchMovies handles POST /api/movies/search
func (h *Handlers) SearchMovies(c *gin.Context) {
	var input movieSearchRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		badRequest(c, "query is required")
		return
	}

	movies, err := h.Movies.SearchMovies(c.Request.Context(), catalog.MovieQuery{Title: query})
	if err != nil {
		respondError(c, err)
		return
	}
	if movies == nil {
		movies = []catalog.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"movies": movies, "total": len(movies)})
}

type manualMovieRequest struct {
	CategoryID int64 `json:"category_id"`
	importer.ManualEntry
}

// AddManualMovie handles POST /api/movies/add-manual-movie
func (h *Handlers) AddManualMovie(c *gin.Context) {
	var input manualMovieRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	if input.CategoryID <= 0 {
		badRequest(c, "category_id is required")
		return
	}

	item, err := h.Importer.AddManualMovie(c.Request.Context(), input.CategoryID, input.ManualEntry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Added %q manually to category", item.Title),
		"item":    item,
	})
}

// csvUpload reads the multipart file and category_id fields shared by the
// CSV routes. It answers the request itself when they are unusable.
func csvUpload(c *gin.Context) (multipart.File, string, int64, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return nil, "", 0, false
	}
	categoryID, err := strconv.ParseInt(c.PostForm("category_id"), 10, 64)
	if err != nil || categoryID <= 0 {
		badRequest(c, "invalid category_id")
		return nil, "", 0, false
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "failed to read upload: %v", err)
		return nil, "", 0, false
	}
	return file, header.Filename, categoryID, true
}

// PreviewCSV handles POST /api/movies/preview-csv (multipart: file, category_id)
func (h *Handlers) PreviewCSV(c *gin.Context) {
	file, filename, categoryID, ok := csvUpload(c)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	preview, err := h.Importer.Preview(c.Request.Context(), categoryID, filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ImportCSV handles POST /api/movies/import-csv (multipart: file, category_id,
// skip_not_found). skip_not_found defaults to true.
func (h *Handlers) ImportCSV(c *gin.Context) {
	skipNotFound, err := strconv.ParseBool(c.DefaultPostForm("skip_not_found", "true"))
	if err != nil {
		badRequest(c, "invalid skip_not_found %q", c.PostForm("skip_not_found"))
		return
	}
	file, filename, categoryID, ok := csvUpload(c)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.Importer.ImportDirect(c.Request.Context(), categoryID, filename, file, skipNotFound)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Imported %d of %d movies", result.Imported, result.Total),
		"results": result,
	})
}

// GetImport handles GET /api/movies/imports/:session
func (h *Handlers) GetImport(c *gin.Context) {
	preview, err := h.Importer.Session(c.Param("session"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// DeleteImportRow handles DELETE /api/movies/imports/:session/rows/:row
func (h *Handlers) DeleteImportRow(c *gin.Context) {
	index, ok := paramIndex(c, "row")
	if !ok {
		return
	}
	preview, err := h.Importer.DeleteRow(c.Param("session"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

type bulkDeleteRequest struct {
	Rows []int `json:"rows"`
}

// BulkDeleteImportRows handles POST /api/movies/imports/:session/rows/bulk-delete
func (h *Handlers) BulkDeleteImportRows(c *gin.Context) {
	var input bulkDeleteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	preview, err := h.Importer.BulkDelete(c.Param("session"), input.Rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

type rowSearchRequest struct {
	Query     string `json:"query"`
	Candidate *int   `json:"candidate"`
}

// SearchImportRow handles POST /api/movies/imports/:session/rows/:row/search
func (h *Handlers) SearchImportRow(c *gin.Context) {
	index, ok := paramIndex(c, "row")
	if !ok {
		return
	}
	var input rowSearchRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	outcome, err := h.Importer.ManualSearch(c.Request.Context(), c.Param("session"), index, input.Query, input.Candidate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ManualImportRow handles POST /api/movies/imports/:session/rows/:row/manual
func (h *Handlers) ManualImportRow(c *gin.Context) {
	index, ok := paramIndex(c, "row")
	if !ok {
		return
	}
	var input importer.ManualEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	preview, err := h.Importer.ManualAdd(c.Param("session"), index, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// OverrideImportRow handles POST /api/movies/imports/:session/rows/:row/override
func (h *Handlers) OverrideImportRow(c *gin.Context) {
	index, ok := paramIndex(c, "row")
	if !ok {
		return
	}
	preview, err := h.Importer.OverrideDuplicate(c.Param("session"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ConfirmImport handles POST /api/movies/imports/:session/confirm
func (h *Handlers) ConfirmImport(c *gin.Context) {
	result, err := h.Importer.Confirm(c.Request.Context(), c.Param("session"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPending handles GET /api/movies/pending?status=
func (h *Handlers) ListPending(c *gin.Context) {
	status := model.PendingStatus(c.Query("status"))
	switch status {
	case "", model.PendingStatusPending, model.PendingStatusCompleted, model.PendingStatusFailed:
	default:
		badRequest(c, "invalid status %q", status)
		return
	}

	pending, err := h.Importer.ListPending(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "total": len(pending)})
}

// ProcessPending handles POST /api/movies/process-pending
func (h *Handlers) ProcessPending(c *gin.Context) {
	result, err := h.Importer.ProcessPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
