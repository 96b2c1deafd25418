package dto

import (
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain/registers/stock"
)

// StockChangeRequest is one manual ledger movement.
// For "ajuste" the quantity is the counted stock.
type StockChangeRequest struct {
	ProductID   string  `json:"productId" binding:"required,uuid"`
	Type        string  `json:"type" binding:"required,stock_movement_type,ne=venta,ne=devolucion"`
	Quantity    int64   `json:"quantity" binding:"gte=0"`
	Reason      string  `json:"reason" binding:"required,max=200"`
	ReferenceID *string `json:"referenceId" binding:"omitempty,uuid"`
}

func (r *StockChangeRequest) ToChange() (stock.Change, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return stock.Change{}, err
	}
	ref, err := parseOptionalID("referenceId", r.ReferenceID)
	if err != nil {
		return stock.Change{}, err
	}
	return stock.Change{
		ProductID:   productID,
		Type:        stock.MovementType(r.Type),
		Quantity:    r.Quantity,
		Reason:      r.Reason,
		ReferenceID: ref,
	}, nil
}

// BulkAdjustRequest applies all changes or none.
type BulkAdjustRequest struct {
	Changes []StockChangeRequest `json:"changes" binding:"required,min=1,max=500,dive"`
}

func (r *BulkAdjustRequest) ToChanges() ([]stock.Change, error) {
	out := make([]stock.Change, 0, len(r.Changes))
	for i := range r.Changes {
		c, err := r.Changes[i].ToChange()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MovementListQuery filters GET /stock/movements.
type MovementListQuery struct {
	ListQuery
	ProductID   *string `form:"productId" binding:"omitempty,uuid"`
	Type        string  `form:"type" binding:"omitempty,stock_movement_type"`
	ReferenceID *string `form:"referenceId" binding:"omitempty,uuid"`
}

func (q *MovementListQuery) ToFilter() (stock.MovementFilter, error) {
	page := q.ListQuery.ToFilter()
	f := stock.MovementFilter{
		FromDate: page.FromDate,
		ToDate:   page.ToDate,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if q.Type != "" {
		t := stock.MovementType(q.Type)
		f.Type = &t
	}
	var err error
	if f.ProductID, err = parseOptionalID("productId", q.ProductID); err != nil {
		return f, err
	}
	if f.ReferenceID, err = parseOptionalID("referenceId", q.ReferenceID); err != nil {
		return f, err
	}
	return f, nil
}
