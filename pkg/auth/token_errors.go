package auth

import "fmt"

// TokenErrorType classifies token failures.
type TokenErrorType string

const (
	// Generation errors
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"

	// Validation errors
	TokenMalformed        TokenErrorType = "TOKEN_MALFORMED"
	TokenExpired          TokenErrorType = "TOKEN_EXPIRED"
	TokenSignatureInvalid TokenErrorType = "TOKEN_SIGNATURE_INVALID"
	TokenWrongType        TokenErrorType = "TOKEN_WRONG_TYPE"

	// Lifecycle errors surfaced by the token manager
	TokenRevoked  TokenErrorType = "TOKEN_REVOKED"
	TokenRotated  TokenErrorType = "TOKEN_ROTATED"
	DatabaseError TokenErrorType = "DATABASE_ERROR"
)

// TokenError is a typed token failure. Callers branch on Type; the wrapped
// Err keeps the original cause for logs.
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// NewTokenError creates a typed token error.
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{
		Type:    tokenType,
		Message: message,
		Err:     err,
	}
}

// IsTokenError reports whether err is a TokenError of the given type.
func IsTokenError(err error, tokenType TokenErrorType) bool {
	tokenErr, ok := err.(*TokenError)
	return ok && tokenErr.Type == tokenType
}
