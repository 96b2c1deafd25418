// Package product provides the product catalog as seen by the sales core:
// identity, sale price and the authoritative stock counter.
package product

import (
	"strings"
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
)

// Product is a sellable item of a tenant.
// Stock is only ever changed through the stock ledger.
type Product struct {
	ID           id.ID       `db:"id" json:"id"`
	TenantID     id.ID       `db:"tenant_id" json:"tenantId"`
	Name         string      `db:"name" json:"name"`
	SKU          string      `db:"sku" json:"sku"`
	Price        types.Money `db:"price" json:"price"`
	Stock        int64       `db:"stock" json:"stock"`
	ReorderPoint int64       `db:"reorder_point" json:"reorderPoint"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// Validate checks the fields a sale depends on.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperror.NewValidation("sku is required")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative")
	}
	if p.Stock < 0 {
		return apperror.NewValidation("stock must not be negative")
	}
	if p.ReorderPoint < 0 {
		return apperror.NewValidation("reorder point must not be negative")
	}
	return nil
}

// BelowReorderPoint reports whether the product needs restocking.
func (p *Product) BelowReorderPoint() bool {
	return p.ReorderPoint > 0 && p.Stock <= p.ReorderPoint
}
