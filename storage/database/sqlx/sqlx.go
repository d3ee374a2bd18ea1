package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Timestamps are stored as unix microseconds.

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// ceilMicros rounds up, so that a stored news date is never earlier than the real one.
func ceilMicros(t time.Time) int64 {
	us := t.UnixMicro()
	if t.Sub(time.UnixMicro(us)) > 0 {
		us++
	}
	return us
}

func fromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// notFound maps sql.ErrNoRows to the domain's sentinel error.
func notFound(err error, sentinel error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return errors.Wrap(err, msg)
}
