package usecase

import (
	"errors"
	"fmt"

	"library-service/pkg/utils"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrOutOfStock          = errors.New("book is out of stock")
	ErrAlreadyReturned     = errors.New("borrowing already returned")
	ErrAlreadyPaid         = errors.New("payment already paid")
	ErrNothingToPay        = errors.New("nothing to pay")
	ErrPaymentNotCompleted = errors.New("payment is not completed")
	ErrUnauthorized        = errors.New("invalid credentials")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("already exists")
)

// ValidationError carries per-field messages for a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + utils.FormatValidationErrors(e.Fields)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// validate runs the struct validator and wraps its findings.
func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ProviderError is a failure of an outside service (checkout provider, chat bot).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
