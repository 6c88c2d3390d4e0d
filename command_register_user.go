package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type RegisterUserMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a credential record from a registration message
type RegisterUserHandler struct {
	store  UserStore
	hasher PasswordAuthenticator
	logger Logger
}

func NewRegisterUserHandler(store UserStore, hasher PasswordAuthenticator) *RegisterUserHandler {
	return &RegisterUserHandler{
		store:  store,
		hasher: hasher,
		logger: defLogger(),
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = logger
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	_, err := h.Register(ctx, event)
	return err
}

// Register creates the user and returns the stored record
func (h *RegisterUserHandler) Register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.register(ctx, event)
	}
}

func (h *RegisterUserHandler) register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role := event.Role
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return nil, validationError(goerrors.New("role: must be one of user, admin", goerrors.CategoryValidation))
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Username:     event.Username,
		Email:        event.Email,
		FullName:     event.FullName,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}

	created, err := h.store.Insert(ctx, user)
	if err != nil {
		if !HasTextCode(err, TextCodeDuplicateUsername) {
			h.logger.Error("register user insert failed", "username", event.Username, "error", err)
		}
		return nil, err
	}

	return created, nil
}
