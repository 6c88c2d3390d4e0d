package auth

import (
	stderrors "errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// bcrypt ignores input past 72 bytes
const maxPasswordLength = 72

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

// LoginPayload is the login form
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreateUserPayload is the registration form
type CreateUserPayload struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	FullName string `form:"full_name" json:"full_name"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPasswordLength)),
	)
}

// UpdateUserPayload lists the only fields a client may change. Absent
// fields are left untouched, anything not listed here is ignored.
type UpdateUserPayload struct {
	Email    *string `form:"email" json:"email,omitempty"`
	FullName *string `form:"full_name" json:"full_name,omitempty"`
	Password *string `form:"password" json:"password,omitempty"`
	Role     *string `form:"role" json:"role,omitempty"`
	Active   *bool   `form:"active" json:"active,omitempty"`
}

// Validate will validate the payload
func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.FullName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, maxPasswordLength)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.By(validateRole)),
	)
}

// TouchesPrivileged reports whether the payload changes role or active
func (r UpdateUserPayload) TouchesPrivileged() bool {
	return r.Role != nil || r.Active != nil
}

// ToUpdate converts the payload into a store update, hashing any new password
func (r UpdateUserPayload) ToUpdate(hasher PasswordAuthenticator) (UserUpdate, error) {
	update := UserUpdate{
		Email:    r.Email,
		FullName: r.FullName,
		Active:   r.Active,
	}

	if r.Role != nil {
		role, ok := ParseRole(*r.Role)
		if !ok {
			return UserUpdate{}, validationError(stderrors.New("role: must be one of user, admin"))
		}
		update.Role = &role
	}

	if r.Password != nil {
		hash, err := hasher.HashPassword(*r.Password)
		if err != nil {
			return UserUpdate{}, err
		}
		update.PasswordHash = &hash
	}

	return update, nil
}

func validateRole(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case *string:
		if v == nil {
			return nil
		}
		raw = *v
	default:
		return stderrors.New("must be a string")
	}

	if _, ok := ParseRole(raw); !ok {
		return stderrors.New("must be one of user, admin")
	}
	return nil
}

// validationError turns ozzo errors into a go-errors validation error
func validationError(err error) error {
	if err == nil {
		return nil
	}

	richErr := errors.Wrap(err, errors.CategoryValidation, "invalid payload").
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)

	var fieldErrs validation.Errors
	if stderrors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fieldErr := range fieldErrs {
			fields[name] = fieldErr.Error()
		}
		richErr = richErr.WithMetadata(map[string]any{"fields": fields})
	}

	return richErr
}
