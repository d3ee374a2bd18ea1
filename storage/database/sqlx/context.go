package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

// ContextNameRepository reads the display names of courses, groups... from the context_name table.
type ContextNameRepository struct {
	exec core.DBExecutor
}

var _ notification.ContextNames = (*ContextNameRepository)(nil) // interface compliance check

func NewContextNameRepository(exec core.DBExecutor) *ContextNameRepository {
	return &ContextNameRepository{exec: exec}
}

func (repo *ContextNameRepository) ContextName(ctx context.Context, kind string, id int64) (string, error) {
	var name string
	q := repo.exec.Rebind(`SELECT name FROM context_name WHERE kind = ? AND id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &name, q, kind, id); err != nil {
		return "", notFound(err, notification.ErrContextNotFound, "selecting context name")
	}
	return name, nil
}

func (repo *ContextNameRepository) SaveContextName(ctx context.Context, kind string, id int64, name string) error {
	q := repo.exec.Rebind(`
		INSERT INTO context_name (kind, id, name) VALUES (?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET name = excluded.name`)
	_, err := repo.exec.ExecContext(ctx, q, kind, id, name)
	return errors.Wrap(err, "saving context name")
}

func (repo *ContextNameRepository) DeleteContextName(ctx context.Context, kind string, id int64) error {
	q := repo.exec.Rebind(`DELETE FROM context_name WHERE kind = ? AND id = ?`)
	_, err := repo.exec.ExecContext(ctx, q, kind, id)
	return errors.Wrap(err, "deleting context name")
}
