package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/user"
)

const userColumns = `id, name, email, locale, is_active, created_at, updated_at`

type (
	userRow struct {
		ID        int64       `db:"id"`
		Name      string      `db:"name"`
		Email     string      `db:"email"`
		Locale    null.String `db:"locale"`
		IsActive  bool        `db:"is_active"`
		CreatedAt int64       `db:"created_at"`
		UpdatedAt int64       `db:"updated_at"`
	}

	userRepository struct {
		exec core.DBExecutor
	}
)

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Locale:    row.Locale.String,
		IsActive:  row.IsActive,
		CreatedAt: fromMicros(row.CreatedAt),
		UpdatedAt: fromMicros(row.UpdatedAt),
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now().UTC()
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = usr.CreatedAt
	}
	q := repo.exec.Rebind(`INSERT INTO user_account (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Email, null.NewString(usr.Locale, usr.Locale != ""), usr.IsActive,
		toMicros(usr.CreatedAt), toMicros(usr.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM user_account ORDER BY id`
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) get(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	q := repo.exec.Rebind(`SELECT ` + userColumns + ` FROM user_account WHERE ` + where)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, arg); err != nil {
		return user.User{}, notFound(err, user.ErrNotFound, "selecting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.get(ctx, "id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = ?", email)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
