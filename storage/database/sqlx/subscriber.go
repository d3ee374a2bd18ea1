package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

const subscriberColumns = `id, identity_id, publisher_id, enabled, created_at, last_seen`

type (
	subscriberRow struct {
		ID          string `db:"id"`
		IdentityID  int64  `db:"identity_id"`
		PublisherID string `db:"publisher_id"`
		Enabled     bool   `db:"enabled"`
		CreatedAt   int64  `db:"created_at"`
		LastSeen    int64  `db:"last_seen"`
	}

	subscriberRepository struct {
		exec core.DBExecutor
	}
)

var _ notification.SubscriberRepository = (*subscriberRepository)(nil) // interface compliance check

func NewSubscriberRepository(exec core.DBExecutor) notification.SubscriberRepository {
	return &subscriberRepository{exec: exec}
}

func (repo subscriberRepository) fromRow(row subscriberRow) notification.Subscriber {
	return notification.Subscriber{
		ID:          row.ID,
		IdentityID:  row.IdentityID,
		PublisherID: row.PublisherID,
		Enabled:     row.Enabled,
		CreatedAt:   fromMicros(row.CreatedAt),
		LastSeen:    fromMicros(row.LastSeen),
	}
}

func (repo subscriberRepository) fromRows(rows []subscriberRow) []notification.Subscriber {
	subs := make([]notification.Subscriber, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, repo.fromRow(row))
	}
	return subs
}

func (repo subscriberRepository) CreateOrEnableSubscriber(ctx context.Context, sub notification.Subscriber) (notification.Subscriber, error) {
	q := repo.exec.Rebind(`
		INSERT INTO subscriber (` + subscriberColumns + `)
		VALUES (?, ?, ?, TRUE, ?, ?)
		ON CONFLICT (identity_id, publisher_id) DO UPDATE SET
			last_seen = CASE WHEN subscriber.enabled THEN subscriber.last_seen ELSE excluded.last_seen END,
			enabled = TRUE`)
	_, err := repo.exec.ExecContext(ctx, q,
		sub.ID, sub.IdentityID, sub.PublisherID, toMicros(sub.CreatedAt), toMicros(sub.LastSeen),
	)
	if err != nil {
		return notification.Subscriber{}, errors.Wrap(err, "inserting subscriber")
	}
	return repo.GetSubscriber(ctx, sub.IdentityID, sub.PublisherID)
}

func (repo subscriberRepository) GetSubscriber(ctx context.Context, identityID int64, publisherID string) (notification.Subscriber, error) {
	var row subscriberRow
	q := repo.exec.Rebind(`SELECT ` + subscriberColumns + ` FROM subscriber WHERE identity_id = ? AND publisher_id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, identityID, publisherID); err != nil {
		return notification.Subscriber{}, notFound(err, notification.ErrSubscriberNotFound, "selecting subscriber")
	}
	return repo.fromRow(row), nil
}

func (repo subscriberRepository) GetSubscriberByID(ctx context.Context, id string) (notification.Subscriber, error) {
	var row subscriberRow
	q := repo.exec.Rebind(`SELECT ` + subscriberColumns + ` FROM subscriber WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return notification.Subscriber{}, notFound(err, notification.ErrSubscriberNotFound, "selecting subscriber")
	}
	return repo.fromRow(row), nil
}

func (repo subscriberRepository) DisableSubscriber(ctx context.Context, identityID int64, publisherID string) error {
	q := repo.exec.Rebind(`UPDATE subscriber SET enabled = FALSE WHERE identity_id = ? AND publisher_id = ?`)
	_, err := repo.exec.ExecContext(ctx, q, identityID, publisherID)
	return errors.Wrap(err, "disabling subscriber")
}

func (repo subscriberRepository) list(ctx context.Context, where string, args ...interface{}) ([]notification.Subscriber, error) {
	var rows []subscriberRow
	q := repo.exec.Rebind(`
		SELECT ` + subscriberColumns + ` FROM subscriber
		WHERE enabled = TRUE AND ` + where + `
		ORDER BY created_at, id`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting subscribers")
	}
	return repo.fromRows(rows), nil
}

func (repo subscriberRepository) ListSubscribersByPublisher(ctx context.Context, publisherID string) ([]notification.Subscriber, error) {
	return repo.list(ctx, "publisher_id = ?", publisherID)
}

func (repo subscriberRepository) ListSubscribersByIdentity(ctx context.Context, identityID int64) ([]notification.Subscriber, error) {
	return repo.list(ctx, "identity_id = ?", identityID)
}

func (repo subscriberRepository) ListSubscribedIdentities(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	q := repo.exec.Rebind(`
		SELECT DISTINCT s.identity_id FROM subscriber s
		JOIN publisher p ON p.id = s.publisher_id
		WHERE s.enabled = TRUE AND p.state = ?
		ORDER BY s.identity_id`)
	if err := sqlx.SelectContext(ctx, repo.exec, &ids, q, string(notification.StateActive)); err != nil {
		return nil, errors.Wrap(err, "selecting subscribed identities")
	}
	return ids, nil
}

func (repo subscriberRepository) updateLastSeen(ctx context.Context, id string, seen time.Time, onlyForward bool) error {
	us := toMicros(seen)
	q := `UPDATE subscriber SET last_seen = ? WHERE id = ?`
	args := []interface{}{us, id}
	if onlyForward {
		q += ` AND last_seen < ?`
		args = append(args, us)
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "updating subscriber")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating subscriber")
	}
	if n == 0 {
		// nothing updated: unknown subscriber, or LastSeen already ahead
		_, err = repo.GetSubscriberByID(ctx, id)
		return err
	}
	return nil
}

func (repo subscriberRepository) UpdateSubscriberLastSeen(ctx context.Context, id string, seen time.Time) error {
	return repo.updateLastSeen(ctx, id, seen, true)
}

func (repo subscriberRepository) ResetSubscriberLastSeen(ctx context.Context, id string, seen time.Time) error {
	return repo.updateLastSeen(ctx, id, seen, false)
}
