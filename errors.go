package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeTokenInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeMissingToken          = "TOKEN_MISSING"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeUserInactive          = "USER_INACTIVE"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeDuplicateUsername     = "USERNAME_TAKEN"
	TextCodeStoreUnavailable      = "STORE_UNAVAILABLE"
	TextCodeValidation            = "VALIDATION_FAILED"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodeUnsupportedDriver     = "UNSUPPORTED_DRIVER"
)

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("incorrect username or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed token could not be parsed
var ErrTokenMalformed = errors.New("malformed token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalidSignature token signature did not verify
var ErrTokenInvalidSignature = errors.New("invalid token signature", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalidSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired token is past its exp claim
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrMissingToken request carried no bearer token
var ErrMissingToken = errors.New("missing or malformed bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound no credential record for the username
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserInactive credential record exists but is deactivated
var ErrUserInactive = errors.New("inactive user", errors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden role is insufficient for the operation
var ErrForbidden = errors.New("not enough permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrDuplicateUsername username already registered
var ErrDuplicateUsername = errors.New("username already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(errors.CodeConflict)

// ErrStoreUnavailable wraps any failure of the persistence layer
var ErrStoreUnavailable = errors.New("user store unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(http.StatusServiceUnavailable)

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// storeUnavailable keeps the original failure as source for logs while the
// client only sees the generic message.
func storeUnavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	if HasTextCode(err, TextCodeStoreUnavailable) {
		return err
	}
	clone := ErrStoreUnavailable.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{"operation": op})
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed or tampered tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeTokenMalformed, TextCodeTokenInvalidSignature, TextCodeMissingToken:
			return true
		}
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed")
}

// HasTextCode reports whether err carries the given go-errors text code
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func errorTextCode(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return "UNKNOWN"
}
