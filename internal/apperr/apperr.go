// Package apperr defines the sentinel failure taxonomy of the monetization
// core. Services return these wrapped with %w; handlers map them to HTTP
// statuses with errors.Is.
package apperr

import "errors"

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateExternalRef = errors.New("duplicate external payment reference")
	ErrNotFound             = errors.New("not found")
	ErrNotApproved          = errors.New("product is not approved")
	ErrAlreadyReviewed      = errors.New("already reviewed")
	ErrAlreadyCaptured      = errors.New("payment already captured")
	ErrProvider             = errors.New("external provider failure")
	ErrValidation           = errors.New("validation failed")
)
