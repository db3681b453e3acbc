package payments

import "errors"

var (
	ErrNotConfigured      = errors.New("payment provider not configured")
	ErrInvalidAmount      = errors.New("invalid payment amount")
	ErrOrderNotFound      = errors.New("payment order not found")
	ErrForbidden          = errors.New("forbidden")
	ErrPurposeMismatch    = errors.New("payment purpose mismatch")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInsufficientAmount = errors.New("insufficient payment amount for membership")
	ErrTerminalConflict   = errors.New("intent already in a contradicting terminal state")
	ErrMalformedPayload   = errors.New("malformed webhook payload")
)
