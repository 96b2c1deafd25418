// Package cash_session provides the cash drawer lifecycle: opening, manual
// cash movements, live totals and blind-count reconciliation at close.
package cash_session

import (
	"strings"
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
)

// Status of a session. The only transition is open -> closed.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ClosingStatus classifies the counted cash against the expected cash.
type ClosingStatus string

const (
	ClosingBalanced ClosingStatus = "balanced"
	ClosingOver     ClosingStatus = "over"
	ClosingShort    ClosingStatus = "short"
)

// MovementType of a manual cash movement.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

// Totals aggregates completed sales and manual movements of a session.
// It never contains the expected cash, which is only revealed at close.
type Totals struct {
	CashSales     types.Money `json:"cashSales"`
	CardSales     types.Money `json:"cardSales"`
	TransferSales types.Money `json:"transferSales"`
	CreditSales   types.Money `json:"creditSales"`

	CashCount     int64 `json:"cashCount"`
	CardCount     int64 `json:"cardCount"`
	TransferCount int64 `json:"transferCount"`
	CreditCount   int64 `json:"creditCount"`

	SalesCount  int64       `json:"salesCount"`
	TotalSales  types.Money `json:"totalSales"`
	ChangeGiven types.Money `json:"changeGiven"`

	CashEntries     types.Money `json:"cashEntries"`
	CashWithdrawals types.Money `json:"cashWithdrawals"`
}

// Session is a cash drawer session.
// Expected cash, difference and classification are nil while open.
type Session struct {
	ID            id.ID       `json:"id"`
	TenantID      id.ID       `json:"tenantId"`
	OpenedBy      id.ID       `json:"openedBy"`
	OpenedByName  string      `json:"openedByName"`
	OpeningAmount types.Money `json:"openingAmount"`
	OpenedAt      time.Time   `json:"openedAt"`
	Status        Status      `json:"status"`

	ClosedBy      *id.ID         `json:"closedBy,omitempty"`
	ClosedByName  *string        `json:"closedByName,omitempty"`
	ClosedAt      *time.Time     `json:"closedAt,omitempty"`
	Totals        *Totals        `json:"totals,omitempty"`
	ExpectedCash  *types.Money   `json:"expectedCash,omitempty"`
	ActualCash    *types.Money   `json:"actualCash,omitempty"`
	Difference    *types.Money   `json:"difference,omitempty"`
	ClosingStatus *ClosingStatus `json:"closingStatus,omitempty"`
	Observations  *string        `json:"observations,omitempty"`
}

// IsOpen reports whether the session accepts sales and movements.
func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

// Movement is a manual cash entry or withdrawal.
type Movement struct {
	ID            id.ID        `db:"id" json:"id"`
	TenantID      id.ID        `db:"tenant_id" json:"tenantId"`
	SessionID     id.ID        `db:"session_id" json:"sessionId"`
	Type          MovementType `db:"type" json:"type"`
	Amount        types.Money  `db:"amount" json:"amount"`
	Reason        string       `db:"reason" json:"reason"`
	Notes         *string      `db:"notes" json:"notes,omitempty"`
	CreatedBy     id.ID        `db:"created_by" json:"createdBy"`
	CreatedByName string       `db:"created_by_name" json:"createdByName"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// MovementInput is a manual movement request.
type MovementInput struct {
	Type   MovementType
	Amount types.Money
	Reason string
	Notes  *string
}

func (in MovementInput) Validate() error {
	if !in.Type.Valid() {
		return apperror.NewValidation("movement type must be 'in' or 'out'")
	}
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return apperror.NewValidation("reason is required")
	}
	return nil
}

// CloseInput carries the blind count.
type CloseInput struct {
	ActualCash   types.Money
	Observations *string
}

func (in CloseInput) Validate() error {
	if in.ActualCash.IsNegative() {
		return apperror.NewValidation("actual cash must not be negative")
	}
	return nil
}

// ListFilter for session listings.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}
