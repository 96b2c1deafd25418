// Package sale provides sale creation and cancellation.
package sale

import (
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
)

// PaymentMethod of a sale.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCredit   PaymentMethod = "credit"
)

// PaymentMethods lists all methods in reporting order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer, PaymentCredit}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentCredit:
		return true
	}
	return false
}

// Status of a sale. The only transition is completed -> voided.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
)

// CreditStatus tracks collection of a credit sale.
type CreditStatus string

const (
	CreditPending CreditStatus = "pending"
	CreditPaid    CreditStatus = "paid"
)

// Sale is a committed point-of-sale transaction.
type Sale struct {
	ID            id.ID         `db:"id" json:"id"`
	TenantID      id.ID         `db:"tenant_id" json:"tenantId"`
	InvoiceNumber string        `db:"invoice_number" json:"invoiceNumber"`
	CustomerID    *id.ID        `db:"customer_id" json:"customerId,omitempty"`
	Subtotal      types.Money   `db:"subtotal" json:"subtotal"`
	Tax           types.Money   `db:"tax" json:"tax"`
	Discount      types.Money   `db:"discount" json:"discount"`
	Total         types.Money   `db:"total" json:"total"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`
	AmountPaid    types.Money   `db:"amount_paid" json:"amountPaid"`
	Change        types.Money   `db:"change_amount" json:"change"`
	SellerID      id.ID         `db:"seller_id" json:"sellerId"`
	SellerName    string        `db:"seller_name" json:"sellerName"`
	Status        Status        `db:"status" json:"status"`
	CreditStatus  *CreditStatus `db:"credit_status" json:"creditStatus,omitempty"`
	DueDate       *time.Time    `db:"due_date" json:"dueDate,omitempty"`
	CashSessionID *id.ID        `db:"cash_session_id" json:"cashSessionId,omitempty"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
	VoidedAt      *time.Time    `db:"voided_at" json:"voidedAt,omitempty"`
	VoidedBy      *id.ID        `db:"voided_by" json:"voidedBy,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is a sale line with price and product snapshots.
type Item struct {
	ID                 id.ID       `db:"id" json:"id"`
	SaleID             id.ID       `db:"sale_id" json:"saleId"`
	ProductID          id.ID       `db:"product_id" json:"productId"`
	ProductName        string      `db:"product_name" json:"productName"`
	ProductSKU         string      `db:"product_sku" json:"productSku"`
	Quantity           int64       `db:"quantity" json:"quantity"`
	UnitPrice          types.Money `db:"unit_price" json:"unitPrice"`
	DiscountPercentage types.Money `db:"discount_percentage" json:"discountPercentage"`
	Subtotal           types.Money `db:"subtotal" json:"subtotal"`
	LineNo             int         `db:"line_no" json:"lineNo"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ProductID id.ID
	Quantity  int64
	// Discount is a percentage in [0, 100].
	Discount types.Money
}

// CreateInput is a sale request.
type CreateInput struct {
	Items         []ItemInput
	PaymentMethod PaymentMethod
	AmountPaid    types.Money
	CustomerID    *id.ID
	// CreditDays overrides the default credit term.
	CreditDays *int
	Notes      *string
}

// Validate rejects malformed requests before any transaction starts.
// A credit sale without a customer is rejected first.
func (in CreateInput) Validate() error {
	if in.PaymentMethod == PaymentCredit && (in.CustomerID == nil || id.IsNil(*in.CustomerID)) {
		return apperror.NewMissingCustomerForCredit()
	}
	if !in.PaymentMethod.Valid() {
		return apperror.NewValidation("invalid payment method").WithDetail("payment_method", in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("sale must contain at least one item")
	}
	for i, it := range in.Items {
		if id.IsNil(it.ProductID) {
			return apperror.NewValidation("product_id is required").WithDetail("index", i)
		}
		if it.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("index", i)
		}
		if !types.ValidPercent(it.Discount) {
			return apperror.NewValidation("discount must be between 0 and 100").WithDetail("index", i)
		}
	}
	if in.AmountPaid.IsNegative() {
		return apperror.NewValidation("amount paid must not be negative")
	}
	if in.CreditDays != nil && *in.CreditDays < 0 {
		return apperror.NewValidation("credit days must not be negative")
	}
	return nil
}

// CanVoid checks the one-way status transition.
func (s *Sale) CanVoid() error {
	if s.Status == StatusVoided {
		return apperror.NewAlreadyVoided(s.ID.String())
	}
	return nil
}
