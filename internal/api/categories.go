package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/model"
)

type categoryRequest struct {
	Name              string             `json:"name"`
	Type              model.CategoryType `json:"type"`
	BookLookupEnabled *bool              `json:"bookLookupEnabled"`
	BookLookupSource  model.BookSource   `json:"bookLookupSource"`
}

// apply copies the fields present in the request onto c.
func (r categoryRequest) apply(c *model.Category) {
	c.Name = r.Name
	if r.Type != "" {
		c.Type = r.Type
	}
	if r.BookLookupEnabled != nil {
		c.BookLookupEnabled = *r.BookLookupEnabled
	}
	if r.BookLookupSource != "" {
		c.BookLookupSource = r.BookLookupSource
	}
	c.Normalize()
}

// ListCategories handles GET /api/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.Store.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	var input categoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	category := &model.Category{}
	input.apply(category)
	if err := category.Validate(); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	if err := h.Store.CreateCategory(c.Request.Context(), category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input categoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	ctx := c.Request.Context()
	category, err := h.Store.GetCategory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	input.apply(category)
	if err := category.Validate(); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	if err := h.Store.UpdateCategory(ctx, category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:id
func (h *Handlers) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RefreshCategoryPrices handles POST /api/categories/:id/refresh-prices
func (h *Handlers) RefreshCategoryPrices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.Refresher.RefreshAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
