package dto

import (
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/documents/sale"
)

// --- Request DTOs ---

type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" binding:"required,payment_method"`
	AmountPaid    types.Money       `json:"amountPaid" binding:"gte=0"`
	CustomerID    *string           `json:"customerId" binding:"omitempty,uuid"`
	CreditDays    *int              `json:"creditDays" binding:"omitempty,min=1,max=365"`
	Notes         *string           `json:"notes" binding:"omitempty,max=500"`
}

type SaleItemRequest struct {
	ProductID string      `json:"productId" binding:"required,uuid"`
	Quantity  int64       `json:"quantity" binding:"required,gt=0"`
	Discount  types.Money `json:"discount" binding:"gte=0,lte=100"`
}

// ToInput converts the request to the domain input.
func (r *CreateSaleRequest) ToInput() (sale.CreateInput, error) {
	customerID, err := parseOptionalID("customerId", r.CustomerID)
	if err != nil {
		return sale.CreateInput{}, err
	}

	in := sale.CreateInput{
		Items:         make([]sale.ItemInput, 0, len(r.Items)),
		PaymentMethod: sale.PaymentMethod(r.PaymentMethod),
		AmountPaid:    r.AmountPaid,
		CustomerID:    customerID,
		CreditDays:    r.CreditDays,
		Notes:         r.Notes,
	}
	for _, it := range r.Items {
		productID, err := id.Parse(it.ProductID)
		if err != nil {
			return sale.CreateInput{}, err
		}
		in.Items = append(in.Items, sale.ItemInput{
			ProductID: productID,
			Quantity:  it.Quantity,
			Discount:  it.Discount,
		})
	}
	return in, nil
}

// SaleListQuery filters GET /sales.
type SaleListQuery struct {
	ListQuery
	Status        string  `form:"status" binding:"omitempty,oneof=completed voided"`
	PaymentMethod string  `form:"paymentMethod" binding:"omitempty,payment_method"`
	CashSessionID *string `form:"cashSessionId" binding:"omitempty,uuid"`
	CustomerID    *string `form:"customerId" binding:"omitempty,uuid"`
}

func (q *SaleListQuery) ToFilter() (sale.ListFilter, error) {
	f := sale.ListFilter{ListFilter: q.ListQuery.ToFilter()}
	if q.Status != "" {
		st := sale.Status(q.Status)
		f.Status = &st
	}
	if q.PaymentMethod != "" {
		pm := sale.PaymentMethod(q.PaymentMethod)
		f.PaymentMethod = &pm
	}
	var err error
	if f.CashSessionID, err = parseOptionalID("cashSessionId", q.CashSessionID); err != nil {
		return f, err
	}
	if f.CustomerID, err = parseOptionalID("customerId", q.CustomerID); err != nil {
		return f, err
	}
	return f, nil
}
