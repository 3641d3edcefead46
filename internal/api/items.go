package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/refresh"
)

type itemRequest struct {
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Price      *float64 `json:"price"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Director   string   `json:"director"`
	Year       int      `json:"year"`
	TrackID    string   `json:"trackId"`
	ExternalID string   `json:"external_id"`
}

func (r itemRequest) validate() string {
	if r.Name == "" || r.URL == "" || r.Price == nil {
		return "name, url and price are required"
	}
	return ""
}

func (r itemRequest) apply(item *model.Item, t model.CategoryType) {
	item.Name = r.Name
	item.URL = r.URL
	item.Price = *r.Price
	item.Title = r.Title
	item.Author = r.Author
	item.Director = r.Director
	item.Year = r.Year
	item.ExternalID = r.TrackID
	if item.ExternalID == "" {
		item.ExternalID = r.ExternalID
	}
	item.FillDefaults(t)
}

// CreateItem handles POST /api/categories/:id/items
func (h *Handlers) CreateItem(c *gin.Context) {
	categoryID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	category, err := h.Store.GetCategory(ctx, categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	var input itemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		badRequest(c, "%s", msg)
		return
	}

	item := &model.Item{CategoryID: categoryID}
	input.apply(item, category.Type)
	if err := item.Validate(); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}

	if err := h.Store.CreateItem(ctx, item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PUT /api/items/:id
func (h *Handlers) UpdateItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input itemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		badRequest(c, "%s", msg)
		return
	}

	ctx := c.Request.Context()
	item, err := h.Store.GetItem(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	category, err := h.Store.GetCategory(ctx, item.CategoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	input.apply(item, category.Type)
	if err := item.Validate(); err != nil {
		badRequest(c, "%s", err.Error())
		return
	}
	if err := h.Store.UpdateItem(ctx, item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/:id
func (h *Handlers) DeleteItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteItem(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ToggleBought handles PATCH /api/items/:id/bought
func (h *Handlers) ToggleBought(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.Store.ToggleBought(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type refreshResponse struct {
	model.Item
	PriceRefresh refresh.PriceRefresh `json:"priceRefresh"`
}

// RefreshItemPrice handles PATCH /api/items/:id/refresh-price
func (h *Handlers) RefreshItemPrice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	outcome, err := h.Refresher.Refresh(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refreshResponse{Item: *outcome.Item, PriceRefresh: outcome.Refresh})
}

// PriceHistory handles GET /api/items/:id/price-history
func (h *Handlers) PriceHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	item, err := h.Store.GetItem(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.Store.ListPriceHistory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"itemId":       item.ID,
		"itemName":     item.Name,
		"priceHistory": history,
	})
}
