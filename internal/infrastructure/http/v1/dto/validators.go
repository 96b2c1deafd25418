package dto

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/domain/registers/stock"
)

// RegisterValidators adds the POS binding tags to v:
//
//	payment_method       cash | card | transfer | credit
//	stock_movement_type  entrada | salida | ajuste | venta | devolucion
//	cash_movement_type   in | out
//
// It also registers decimal.Decimal as a numeric type so that tags like
// gte=0 work on money fields, and reports fields by their JSON names.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	rules := map[string]validator.Func{
		"payment_method": func(fl validator.FieldLevel) bool {
			return sale.PaymentMethod(fl.Field().String()).Valid()
		},
		"stock_movement_type": func(fl validator.FieldLevel) bool {
			return stock.MovementType(fl.Field().String()).Valid()
		},
		"cash_movement_type": func(fl validator.FieldLevel) bool {
			return cash_session.MovementType(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}
