package sales

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks sale payloads before they are finalized.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs a validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Struct validates any tagged struct and reports failures as ErrValidation.
func (v *Validator) Struct(target any) error {
	if err := v.validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

// Sale validates tags and totals consistency.
func (v *Validator) Sale(s Sale) error {
	if err := v.Struct(s); err != nil {
		return err
	}
	if sum := ItemsTotal(s.Items); !moneyEqual(sum, s.Total) {
		return fmt.Errorf("%w: total %.2f does not match items %.2f", ErrValidation, s.Total, sum)
	}
	if s.PaymentMethod == PaymentCash {
		if s.Tendered+centTolerance < s.Total {
			return fmt.Errorf("%w: tendered %.2f is below total %.2f", ErrValidation, s.Tendered, s.Total)
		}
		if due := ChangeDue(s.Total, s.Tendered); !moneyEqual(due, s.Change) {
			return fmt.Errorf("%w: change %.2f should be %.2f", ErrValidation, s.Change, due)
		}
	}
	return nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
