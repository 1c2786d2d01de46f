package schema

var emptyMap = map[string]any{}

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
		Details: emptyMap,
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
		Details: emptyMap,
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
		Details: emptyMap,
	}
	ErrUnauthorized = &Error{
		Type:    "access.unauthorized",
		Message: "Unauthorized",
		Details: emptyMap,
	}
	ErrInvalidToken = &Error{
		Type:    "access.invalidToken",
		Message: "The access token could not be verified.",
		Details: emptyMap,
	}
	ErrClientNotAllowed = func(clientID string) *Error {
		return &Error{
			Type:    "access.clientNotAllowed",
			Message: "The client the access token was issued to is not allowed to invoke this runtime.",
			Details: map[string]any{
				"client_id": clientID,
			},
		}
	}
)

// ErrorResponse represents the response structure sent by the runtime host whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
