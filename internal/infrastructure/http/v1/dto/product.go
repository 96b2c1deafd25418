package dto

import (
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/catalogs/product"
)

// CreateProductRequest registers a product with zero stock.
// Initial quantities go through an "entrada" stock change.
type CreateProductRequest struct {
	Name         string      `json:"name" binding:"required,max=200"`
	SKU          string      `json:"sku" binding:"required,max=64"`
	Price        types.Money `json:"price" binding:"gte=0"`
	ReorderPoint int64       `json:"reorderPoint" binding:"gte=0"`
}

func (r *CreateProductRequest) ToProduct() *product.Product {
	return &product.Product{
		Name:         r.Name,
		SKU:          r.SKU,
		Price:        r.Price,
		ReorderPoint: r.ReorderPoint,
	}
}
