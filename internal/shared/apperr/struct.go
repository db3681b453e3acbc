package apperr

type Kind string

type AppError struct {
	Kind      Kind
	PublicMsg string            // safe to show to the caller
	Fields    map[string]string // field -> message for validation errors (optional)
	Err       error             // internal error (for logs only)
}
