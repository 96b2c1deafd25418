package stock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
)

func TestCompute(t *testing.T) {
	pid := id.New()

	tests := []struct {
		name         string
		current      int64
		change       Change
		wantStock    int64
		wantRecorded int64
		wantCode     string
	}{
		{"entrada adds", 10, Change{ProductID: pid, Type: TypeEntrada, Quantity: 5}, 15, 5, ""},
		{"devolucion adds", 0, Change{ProductID: pid, Type: TypeDevolucion, Quantity: 3}, 3, 3, ""},
		{"venta subtracts", 10, Change{ProductID: pid, Type: TypeVenta, Quantity: 4}, 6, 4, ""},
		{"salida to zero", 4, Change{ProductID: pid, Type: TypeSalida, Quantity: 4}, 0, 4, ""},
		{"salida below zero", 3, Change{ProductID: pid, Type: TypeSalida, Quantity: 4}, 0, 0, apperror.CodeInsufficientStock},
		{"ajuste up", 10, Change{ProductID: pid, Type: TypeAjuste, Quantity: 25}, 25, 15, ""},
		{"ajuste down", 10, Change{ProductID: pid, Type: TypeAjuste, Quantity: 2}, 2, 8, ""},
		{"ajuste zero delta", 7, Change{ProductID: pid, Type: TypeAjuste, Quantity: 7}, 7, 0, ""},
		{"entrada up to max", math.MaxInt64 - 5, Change{ProductID: pid, Type: TypeEntrada, Quantity: 5}, math.MaxInt64, 5, ""},
		{"entrada past max", math.MaxInt64 - 5, Change{ProductID: pid, Type: TypeEntrada, Quantity: 6}, 0, 0, apperror.CodeValidation},
		{"devolucion past max", 1, Change{ProductID: pid, Type: TypeDevolucion, Quantity: math.MaxInt64}, 0, 0, apperror.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newStock, recorded, err := Compute(tt.current, tt.change)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperror.Is(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, newStock)
			assert.Equal(t, tt.wantRecorded, recorded)
		})
	}
}

func TestChange_Validate(t *testing.T) {
	pid := id.New()

	tests := []struct {
		name    string
		change  Change
		wantErr bool
	}{
		{"valid entrada", Change{ProductID: pid, Type: TypeEntrada, Quantity: 1, Reason: "purchase"}, false},
		{"valid ajuste to zero", Change{ProductID: pid, Type: TypeAjuste, Quantity: 0, Reason: "count"}, false},
		{"missing product", Change{Type: TypeEntrada, Quantity: 1, Reason: "x"}, true},
		{"unknown type", Change{ProductID: pid, Type: "robo", Quantity: 1, Reason: "x"}, true},
		{"zero out quantity", Change{ProductID: pid, Type: TypeSalida, Quantity: 0, Reason: "x"}, true},
		{"negative ajuste", Change{ProductID: pid, Type: TypeAjuste, Quantity: -1, Reason: "x"}, true},
		{"blank reason", Change{ProductID: pid, Type: TypeEntrada, Quantity: 1, Reason: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
