package domain

// ValidationError reports bad or missing caller input. Message is safe
// to return to the client verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
