package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

// Users is the bun backed UserStore
type Users interface {
	UserStore
	Ping(ctx context.Context) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users     = (*users)(nil)
	_ UserStore = (*users)(nil)
)

type UsersOption func(*users)

// WithUsersClock sets the time source for created_at and updated_at
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return storeUnavailable(err, "ping")
	}
	return nil
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.findByUsernameTx(ctx, a.db, username)
}

func (a *users) findByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable(err, "find_by_username")
	}

	return record, nil
}

// Insert creates the record. The existence check and the insert run in
// one transaction, the unique index catches concurrent inserts.
func (a *users) Insert(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	var created *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := a.findByUsernameTx(ctx, tx, user.Username)
		if err == nil {
			return ErrDuplicateUsername
		}
		if !HasTextCode(err, TextCodeUserNotFound) {
			return err
		}

		prepareUserDefaults(user, a.now())

		created, err = a.Repository.CreateTx(ctx, tx, user)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateUsername
			}
			return storeUnavailable(err, "insert")
		}
		return nil
	})

	if err != nil {
		return nil, a.normalizeTxError(err, "insert")
	}

	return created, nil
}

// Update merges the set fields of fields into the record for username
func (a *users) Update(ctx context.Context, username string, fields UserUpdate) (*User, error) {
	var updated *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := a.findByUsernameTx(ctx, tx, username)
		if err != nil {
			return err
		}

		columns := fields.apply(record)
		if len(columns) == 0 {
			updated = record
			return nil
		}

		record.UpdatedAt = a.now()
		columns = append(columns, "updated_at")

		res, err := tx.NewUpdate().
			Model(record).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return storeUnavailable(err, "update")
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrUserNotFound
		}

		updated = record
		return nil
	})

	if err != nil {
		return nil, a.normalizeTxError(err, "update")
	}

	return updated, nil
}

func (a *users) Delete(ctx context.Context, username string) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return storeUnavailable(err, "delete")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeUnavailable(err, "delete")
	}

	if n == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	records := make([]*User, 0)
	err := a.db.NewSelect().
		Model(&records).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeUnavailable(err, "list")
	}
	return records, nil
}

func (a *users) normalizeTxError(err error, op string) error {
	switch {
	case HasTextCode(err, TextCodeDuplicateUsername),
		HasTextCode(err, TextCodeUserNotFound),
		HasTextCode(err, TextCodeStoreUnavailable):
		return err
	case isUniqueViolation(err):
		return ErrDuplicateUsername
	default:
		return storeUnavailable(err, op)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
