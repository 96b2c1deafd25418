package dto

import (
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/documents/cash_session"
)

type OpenSessionRequest struct {
	OpeningAmount types.Money `json:"openingAmount" binding:"gte=0"`
}

type CashMovementRequest struct {
	Type   string      `json:"type" binding:"required,cash_movement_type"`
	Amount types.Money `json:"amount" binding:"gt=0"`
	Reason string      `json:"reason" binding:"required,max=200"`
	Notes  *string     `json:"notes" binding:"omitempty,max=500"`
}

func (r *CashMovementRequest) ToInput() cash_session.MovementInput {
	return cash_session.MovementInput{
		Type:   cash_session.MovementType(r.Type),
		Amount: r.Amount,
		Reason: r.Reason,
		Notes:  r.Notes,
	}
}

// CloseSessionRequest carries the blind count. The expected cash is never
// sent to the client before this request.
type CloseSessionRequest struct {
	ActualCash   types.Money `json:"actualCash" binding:"gte=0"`
	Observations *string     `json:"observations" binding:"omitempty,max=1000"`
}

func (r *CloseSessionRequest) ToInput() cash_session.CloseInput {
	return cash_session.CloseInput{ActualCash: r.ActualCash, Observations: r.Observations}
}

type SessionListQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Status string `form:"status" binding:"omitempty,oneof=open closed"`
}

func (q *SessionListQuery) ToFilter() cash_session.ListFilter {
	f := cash_session.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := cash_session.Status(q.Status)
		f.Status = &st
	}
	return f
}

// LiveTotalsResponse is the running view of an open session.
// It has no expected cash field.
type LiveTotalsResponse struct {
	SessionID string              `json:"sessionId"`
	Totals    cash_session.Totals `json:"totals"`
}
