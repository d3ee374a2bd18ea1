package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/calendar"
)

const eventColumns = `id, course_id, calendar, title, location, starts_at, created_at, updated_at, canceled`

type (
	eventRow struct {
		ID        int64       `db:"id"`
		CourseID  int64       `db:"course_id"`
		Calendar  string      `db:"calendar"`
		Title     string      `db:"title"`
		Location  null.String `db:"location"`
		StartsAt  int64       `db:"starts_at"`
		CreatedAt int64       `db:"created_at"`
		UpdatedAt int64       `db:"updated_at"`
		Canceled  bool        `db:"canceled"`
	}

	CalendarRepository struct {
		exec core.DBExecutor
	}
)

var _ calendar.EventSource = (*CalendarRepository)(nil) // interface compliance check

func NewCalendarRepository(exec core.DBExecutor) *CalendarRepository {
	return &CalendarRepository{exec: exec}
}

func (repo *CalendarRepository) CalendarTitle(ctx context.Context, courseID int64, cal string) (string, error) {
	var title string
	q := repo.exec.Rebind(`SELECT title FROM calendar WHERE course_id = ? AND name = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &title, q, courseID, cal); err != nil {
		return "", notFound(err, calendar.ErrCalendarNotFound, "selecting calendar")
	}
	return title, nil
}

func (repo *CalendarRepository) EventsChangedSince(ctx context.Context, courseID int64, cal string, since time.Time) ([]calendar.Event, error) {
	var rows []eventRow
	q := repo.exec.Rebind(`
		SELECT ` + eventColumns + ` FROM calendar_event
		WHERE course_id = ? AND calendar = ? AND updated_at > ?
		ORDER BY updated_at, id`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, courseID, cal, toMicros(since)); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}
	events := make([]calendar.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, calendar.Event{
			ID:        row.ID,
			CourseID:  row.CourseID,
			Calendar:  row.Calendar,
			Title:     row.Title,
			Location:  row.Location.String,
			StartsAt:  fromMicros(row.StartsAt),
			CreatedAt: fromMicros(row.CreatedAt),
			UpdatedAt: fromMicros(row.UpdatedAt),
			Canceled:  row.Canceled,
		})
	}
	return events, nil
}

func (repo *CalendarRepository) SaveCalendar(ctx context.Context, courseID int64, cal, title string) error {
	q := repo.exec.Rebind(`
		INSERT INTO calendar (course_id, name, title) VALUES (?, ?, ?)
		ON CONFLICT (course_id, name) DO UPDATE SET title = excluded.title`)
	_, err := repo.exec.ExecContext(ctx, q, courseID, cal, title)
	return errors.Wrap(err, "saving calendar")
}

func (repo *CalendarRepository) SaveEvent(ctx context.Context, evt calendar.Event) error {
	q := repo.exec.Rebind(`
		INSERT INTO calendar_event (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, location = excluded.location, starts_at = excluded.starts_at,
			updated_at = excluded.updated_at, canceled = excluded.canceled`)
	_, err := repo.exec.ExecContext(ctx, q,
		evt.ID, evt.CourseID, evt.Calendar, evt.Title, null.NewString(evt.Location, evt.Location != ""),
		toMicros(evt.StartsAt), toMicros(evt.CreatedAt), toMicros(evt.UpdatedAt), evt.Canceled,
	)
	return errors.Wrap(err, "saving event")
}
