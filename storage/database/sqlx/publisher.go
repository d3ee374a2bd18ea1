package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

const publisherColumns = `id, resource_type, resource_id, sub_path, business_path, data, state, latest_news, created_at`

type (
	publisherRow struct {
		ID           string      `db:"id"`
		ResourceType string      `db:"resource_type"`
		ResourceID   int64       `db:"resource_id"`
		SubPath      string      `db:"sub_path"`
		BusinessPath null.String `db:"business_path"`
		Data         null.String `db:"data"`
		State        string      `db:"state"`
		LatestNews   int64       `db:"latest_news"`
		CreatedAt    int64       `db:"created_at"`
	}

	publisherRepository struct {
		exec core.DBExecutor
	}
)

var _ notification.PublisherRepository = (*publisherRepository)(nil) // interface compliance check

func NewPublisherRepository(exec core.DBExecutor) notification.PublisherRepository {
	return &publisherRepository{exec: exec}
}

func (repo publisherRepository) toRow(pub notification.Publisher) publisherRow {
	return publisherRow{
		ID:           pub.ID,
		ResourceType: pub.ResourceType,
		ResourceID:   pub.ResourceID,
		SubPath:      pub.SubPath,
		BusinessPath: null.NewString(pub.BusinessPath, pub.BusinessPath != ""),
		Data:         null.NewString(pub.Data, pub.Data != ""),
		State:        string(pub.State),
		LatestNews:   ceilMicros(pub.LatestNews),
		CreatedAt:    toMicros(pub.CreatedAt),
	}
}

func (repo publisherRepository) fromRow(row publisherRow) notification.Publisher {
	return notification.Publisher{
		ID:           row.ID,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		SubPath:      row.SubPath,
		BusinessPath: row.BusinessPath.String,
		Data:         row.Data.String,
		State:        notification.PublisherState(row.State),
		LatestNews:   fromMicros(row.LatestNews),
		CreatedAt:    fromMicros(row.CreatedAt),
	}
}

func (repo publisherRepository) FindOrCreatePublisher(ctx context.Context, pub notification.Publisher) (notification.Publisher, error) {
	row := repo.toRow(pub)
	q := repo.exec.Rebind(`
		INSERT INTO publisher (` + publisherColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	_, err := repo.exec.ExecContext(ctx, q,
		row.ID, row.ResourceType, row.ResourceID, row.SubPath, row.BusinessPath, row.Data,
		row.State, row.LatestNews, row.CreatedAt,
	)
	if err != nil {
		return notification.Publisher{}, errors.Wrap(err, "inserting publisher")
	}

	// the row just inserted, or the one a concurrent caller inserted first
	return repo.GetPublisher(ctx, pub.Context())
}

func (repo publisherRepository) GetPublisher(ctx context.Context, sc notification.SubscriptionContext) (notification.Publisher, error) {
	var row publisherRow
	q := repo.exec.Rebind(`
		SELECT ` + publisherColumns + ` FROM publisher
		WHERE resource_type = ? AND resource_id = ? AND sub_path = ?
		ORDER BY CASE WHEN state = 'active' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, sc.ResourceType, sc.ResourceID, sc.SubPath); err != nil {
		return notification.Publisher{}, notFound(err, notification.ErrPublisherNotFound, "selecting publisher")
	}
	return repo.fromRow(row), nil
}

func (repo publisherRepository) GetPublisherByID(ctx context.Context, id string) (notification.Publisher, error) {
	var row publisherRow
	q := repo.exec.Rebind(`SELECT ` + publisherColumns + ` FROM publisher WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return notification.Publisher{}, notFound(err, notification.ErrPublisherNotFound, "selecting publisher")
	}
	return repo.fromRow(row), nil
}

func (repo publisherRepository) MarkPublisherNews(ctx context.Context, sc notification.SubscriptionContext, at time.Time) (bool, error) {
	us := ceilMicros(at)
	q := repo.exec.Rebind(`
		UPDATE publisher SET latest_news = CASE WHEN latest_news < ? THEN ? ELSE latest_news END
		WHERE resource_type = ? AND resource_id = ? AND sub_path = ? AND state = 'active'`)
	res, err := repo.exec.ExecContext(ctx, q, us, us, sc.ResourceType, sc.ResourceID, sc.SubPath)
	if err != nil {
		return false, errors.Wrap(err, "updating publisher news")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "updating publisher news")
	}
	return n > 0, nil
}

func (repo publisherRepository) update(ctx context.Context, id, msg, q string, args ...interface{}) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), append(args, id)...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notification.ErrPublisherNotFound
	}
	return nil
}

func (repo publisherRepository) DeactivatePublisher(ctx context.Context, id string) error {
	return repo.update(ctx, id, "deactivating publisher",
		`UPDATE publisher SET state = ? WHERE id = ?`, string(notification.StateDeactivated))
}

func (repo publisherRepository) UpdatePublisherData(ctx context.Context, id string, data notification.PublisherData) error {
	return repo.update(ctx, id, "updating publisher data",
		`UPDATE publisher SET data = ?, business_path = ? WHERE id = ?`,
		null.NewString(data.Data, data.Data != ""), null.NewString(data.BusinessPath, data.BusinessPath != ""))
}
