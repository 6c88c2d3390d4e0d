package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	Email         string    `bun:"email,notnull" json:"email"`
	FullName      string    `bun:"full_name,notnull" json:"full_name"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Role          Role      `bun:"user_role,notnull" json:"role"`
	Active        bool      `bun:"active,notnull" json:"active"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// UserUpdate is the whitelist of fields a caller may change. Nil fields are
// left untouched. PasswordHash is set by the service, never by a client.
type UserUpdate struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *Role
	Active       *bool
}

// IsZero reports whether no field is set
func (u UserUpdate) IsZero() bool {
	return u.Email == nil &&
		u.FullName == nil &&
		u.PasswordHash == nil &&
		u.Role == nil &&
		u.Active == nil
}

// apply merges the set fields into user and returns the changed columns
func (u UserUpdate) apply(user *User) []string {
	columns := make([]string, 0, 6)
	if u.Email != nil {
		user.Email = *u.Email
		columns = append(columns, "email")
	}
	if u.FullName != nil {
		user.FullName = *u.FullName
		columns = append(columns, "full_name")
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
		columns = append(columns, "password_hash")
	}
	if u.Role != nil {
		user.Role = *u.Role
		columns = append(columns, "user_role")
	}
	if u.Active != nil {
		user.Active = *u.Active
		columns = append(columns, "active")
	}
	return columns
}

// Identity returns the public view of the record
func (u *User) Identity() UserIdentity {
	return UserIdentity{
		UserName: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		UserRole: u.Role,
		Active:   u.Active,
	}
}

// UserIdentity is what the service exposes of a user. It never carries the
// password hash.
type UserIdentity struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	UserRole Role   `json:"role"`
	Active   bool   `json:"active"`
}

func (i UserIdentity) Username() string { return i.UserName }
func (i UserIdentity) Role() Role       { return i.UserRole }

var _ Identity = UserIdentity{}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}
