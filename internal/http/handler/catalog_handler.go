package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladyslavplus/orderly/internal/apperr"
	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/service"
)

// CatalogHandler exposes product CRUD endpoints.
type CatalogHandler struct {
	Products *service.ProductService
}

// NewCatalogHandler creates the handler set.
func NewCatalogHandler(products *service.ProductService) *CatalogHandler {
	return &CatalogHandler{Products: products}
}

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"gte=0"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
}

// Create persists a new product.
func (h *CatalogHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidationFailed, "invalid product payload: %v", err))
		return
	}

	product, err := h.Products.Create(c.Request.Context(), service.CreateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		Rating:      req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, productResponse(product))
}

// Get returns a product by id.
func (h *CatalogHandler) Get(c *gin.Context) {
	productID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.Products.GetByID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productResponse(product))
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Category    *string  `json:"category"`
	Rating      *float64 `json:"rating"`
}

// Update applies partial field changes.
func (h *CatalogHandler) Update(c *gin.Context) {
	productID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidationFailed, "invalid product payload: %v", err))
		return
	}

	product, err := h.Products.Update(c.Request.Context(), productID, service.UpdateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		Rating:      req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productResponse(product))
}

// Delete removes a product.
func (h *CatalogHandler) Delete(c *gin.Context) {
	productID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.Products.Delete(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func productResponse(product domain.Product) gin.H {
	return gin.H{
		"id":          strconv.FormatInt(product.ID, 10),
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"quantity":    product.Quantity,
		"category":    product.Category,
		"rating":      product.Rating,
		"createdAt":   product.CreatedAt,
		"updatedAt":   product.UpdatedAt,
	}
}
