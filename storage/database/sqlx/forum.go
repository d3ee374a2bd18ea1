package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/forum"
)

const messageColumns = `id, forum_id, thread_id, subject, author, created_at`

type (
	forumRow struct {
		ID      int64  `db:"id"`
		Name    string `db:"name"`
		Deleted bool   `db:"deleted"`
	}

	messageRow struct {
		ID        int64  `db:"id"`
		ForumID   int64  `db:"forum_id"`
		ThreadID  int64  `db:"thread_id"`
		Subject   string `db:"subject"`
		Author    string `db:"author"`
		CreatedAt int64  `db:"created_at"`
	}

	// ForumRepository reads (and, for the admin tools, writes) forum content.
	ForumRepository struct {
		exec core.DBExecutor
	}
)

var _ forum.MessageSource = (*ForumRepository)(nil) // interface compliance check

func NewForumRepository(exec core.DBExecutor) *ForumRepository {
	return &ForumRepository{exec: exec}
}

func (repo *ForumRepository) GetForum(ctx context.Context, id int64) (forum.Forum, error) {
	var row forumRow
	q := repo.exec.Rebind(`SELECT id, name, deleted FROM forum WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return forum.Forum{}, notFound(err, forum.ErrForumNotFound, "selecting forum")
	}
	return forum.Forum{ID: row.ID, Name: row.Name, Deleted: row.Deleted}, nil
}

func (repo *ForumRepository) MessagesSince(ctx context.Context, forumID, threadID int64, since time.Time) ([]forum.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM forum_message WHERE forum_id = ? AND created_at > ?`
	args := []interface{}{forumID, toMicros(since)}
	if threadID != 0 {
		q += ` AND thread_id = ?`
		args = append(args, threadID)
	}
	q += ` ORDER BY created_at, id`

	var rows []messageRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}
	msgs := make([]forum.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, forum.Message{
			ID:        row.ID,
			ForumID:   row.ForumID,
			ThreadID:  row.ThreadID,
			Subject:   row.Subject,
			Author:    row.Author,
			CreatedAt: fromMicros(row.CreatedAt),
		})
	}
	return msgs, nil
}

func (repo *ForumRepository) SaveForum(ctx context.Context, f forum.Forum) error {
	q := repo.exec.Rebind(`
		INSERT INTO forum (id, name, deleted) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, deleted = excluded.deleted`)
	_, err := repo.exec.ExecContext(ctx, q, f.ID, f.Name, f.Deleted)
	return errors.Wrap(err, "saving forum")
}

func (repo *ForumRepository) AddMessage(ctx context.Context, msg forum.Message) error {
	if msg.ThreadID == 0 {
		msg.ThreadID = msg.ID
	}
	q := repo.exec.Rebind(`INSERT INTO forum_message (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q, msg.ID, msg.ForumID, msg.ThreadID, msg.Subject, msg.Author, toMicros(msg.CreatedAt))
	return errors.Wrap(err, "inserting message")
}
