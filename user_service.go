package auth

import (
	"context"
	"fmt"
)

// Item is an entry of the caller's own item list
type Item struct {
	ItemID string `json:"item_id"`
	Owner  string `json:"owner"`
}

// DeleteResult is returned by DeleteSelf
type DeleteResult struct {
	Detail string `json:"detail"`
}

// UserService implements the user facing operations on top of the store.
// Every method expects an already resolved caller, authentication happens
// in the middleware.
type UserService struct {
	store    UserStore
	hasher   PasswordAuthenticator
	guard    *PermissionGuard
	register *RegisterUserHandler
	logger   Logger
	sink     ActivitySink
}

func NewUserService(store UserStore, hasher PasswordAuthenticator) *UserService {
	return &UserService{
		store:    store,
		hasher:   hasher,
		guard:    NewPermissionGuard(),
		register: NewRegisterUserHandler(store, hasher),
		logger:   defLogger(),
		sink:     noopActivitySink{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	s.logger = logger
	s.guard.WithLogger(logger)
	s.register.WithLogger(logger)
	return s
}

func (s *UserService) WithGuard(guard *PermissionGuard) *UserService {
	if guard != nil {
		s.guard = guard
	}
	return s
}

func (s *UserService) WithActivitySink(sink ActivitySink) *UserService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// Whoami returns the caller's own record
func (s *UserService) Whoami(caller *ResolvedIdentity) (UserIdentity, error) {
	if caller == nil {
		return UserIdentity{}, ErrMissingToken
	}
	if err := s.guard.Check(caller, RoleUser); err != nil {
		return UserIdentity{}, err
	}
	return caller.UserIdentity, nil
}

// Items lists the caller's items
func (s *UserService) Items(caller *ResolvedIdentity) ([]Item, error) {
	if caller == nil {
		return nil, ErrMissingToken
	}
	if err := s.guard.Check(caller, RoleUser); err != nil {
		return nil, err
	}
	return []Item{
		{ItemID: "Foo", Owner: caller.Username()},
	}, nil
}

// CreateUser registers a new active account with the user role
func (s *UserService) CreateUser(ctx context.Context, payload CreateUserPayload) (UserIdentity, error) {
	if err := payload.Validate(); err != nil {
		return UserIdentity{}, validationError(err)
	}

	user, err := s.register.Register(ctx, RegisterUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		FullName: payload.FullName,
		Password: payload.Password,
		Role:     RoleUser,
	})
	if err != nil {
		return UserIdentity{}, err
	}

	s.record(ctx, ActivityEventUserCreated, user.Username, user.Username, nil)

	return user.Identity(), nil
}

// ListUsers returns every account, admins only
func (s *UserService) ListUsers(ctx context.Context, caller Identity) ([]UserIdentity, error) {
	if err := s.guard.Check(caller, RoleAdmin); err != nil {
		return nil, err
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserIdentity, 0, len(records))
	for _, record := range records {
		out = append(out, record.Identity())
	}
	return out, nil
}

// UpdateUser changes the whitelisted fields of target. Users may only
// update themselves and never their own role or active flag. A non admin
// targeting another account is refused before any lookup so the answer
// does not depend on whether the account exists.
func (s *UserService) UpdateUser(ctx context.Context, caller Identity, target string, payload UpdateUserPayload) (UserIdentity, error) {
	if err := s.guard.Check(caller, RoleUser); err != nil {
		return UserIdentity{}, err
	}

	isAdmin := caller.Role().IsAtLeast(RoleAdmin)
	if !isAdmin && caller.Username() != target {
		s.logger.Warn("update of another account refused", "caller", caller.Username(), "target", target)
		return UserIdentity{}, ErrForbidden
	}

	if !isAdmin && payload.TouchesPrivileged() {
		s.logger.Warn("privileged field update refused", "caller", caller.Username())
		return UserIdentity{}, ErrForbidden
	}

	if err := payload.Validate(); err != nil {
		return UserIdentity{}, validationError(err)
	}

	update, err := payload.ToUpdate(s.hasher)
	if err != nil {
		return UserIdentity{}, err
	}

	user, err := s.store.Update(ctx, target, update)
	if err != nil {
		return UserIdentity{}, err
	}

	s.record(ctx, ActivityEventUserUpdated, caller.Username(), target, map[string]any{
		"password_changed": update.PasswordHash != nil,
	})

	if update.Active != nil {
		s.record(ctx, ActivityEventStatusChanged, caller.Username(), target, map[string]any{
			"active": *update.Active,
		})
	}

	return user.Identity(), nil
}

// DeleteSelf removes the caller's own account. Tokens already issued to it
// stop resolving on the next request.
func (s *UserService) DeleteSelf(ctx context.Context, caller Identity) (DeleteResult, error) {
	if err := s.guard.Check(caller, RoleUser); err != nil {
		return DeleteResult{}, err
	}

	if err := s.store.Delete(ctx, caller.Username()); err != nil {
		return DeleteResult{}, err
	}

	s.record(ctx, ActivityEventUserDeleted, caller.Username(), caller.Username(), nil)

	return DeleteResult{
		Detail: fmt.Sprintf("User %s deleted successfully", caller.Username()),
	}, nil
}

// SeedAdmin creates an active admin when username is not taken. It is a
// no-op when the account already exists.
func (s *UserService) SeedAdmin(ctx context.Context, username, password, email string) (bool, error) {
	if username == "" {
		return false, nil
	}

	_, err := s.store.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !HasTextCode(err, TextCodeUserNotFound) {
		return false, err
	}

	if email == "" {
		email = username + "@localhost"
	}

	_, err = s.register.Register(ctx, RegisterUserMessage{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Password: password,
		Role:     RoleAdmin,
	})
	if err != nil {
		if HasTextCode(err, TextCodeDuplicateUsername) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("seeded admin account", "username", username)
	return true, nil
}

func (s *UserService) record(ctx context.Context, eventType ActivityEventType, actor, username string, metadata map[string]any) {
	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		Username:  username,
		Metadata:  metadata,
	})
}
