package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/preference"
)

type (
	preferenceRow struct {
		Namespace string `db:"namespace"`
		Name      string `db:"name"`
		Value     string `db:"value"`
	}

	preferenceRepository struct {
		db core.DB
	}
)

var _ preference.Repository = (*preferenceRepository)(nil) // interface compliance check

func NewPreferenceRepository(db core.DB) preference.Repository {
	return &preferenceRepository{db: db}
}

func (repo preferenceRepository) LoadPreferences(ctx context.Context, identityID int64) (map[preference.Key]string, error) {
	var rows []preferenceRow
	q := repo.db.Rebind(`SELECT namespace, name, value FROM preference WHERE identity_id = ?`)
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, identityID); err != nil {
		return nil, errors.Wrap(err, "selecting preferences")
	}
	values := make(map[preference.Key]string, len(rows))
	for _, row := range rows {
		values[preference.Key{Namespace: row.Namespace, Name: row.Name}] = row.Value
	}
	return values, nil
}

func (repo preferenceRepository) SavePreferences(ctx context.Context, identityID int64, values map[preference.Key]string) error {
	q := repo.db.Rebind(`
		INSERT INTO preference (identity_id, namespace, name, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (identity_id, namespace, name) DO UPDATE SET value = excluded.value`)
	return core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		for k, v := range values {
			if _, err := tx.ExecContext(ctx, q, identityID, k.Namespace, k.Name, v); err != nil {
				return errors.Wrap(err, "upserting preference")
			}
		}
		return nil
	})
}
