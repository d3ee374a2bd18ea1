package dummydb

import (
	"sync"

	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/preference"
	"github.com/trezcool/masomo-notify/core/user"
)

type (
	// DB is an in-memory database, handy for tests and local runs.
	DB struct {
		publisher  *publisherTable
		subscriber *subscriberTable
		preference *preferenceTable
		user       *userTable
		context    *contextTable
	}

	publisherTable struct {
		sync.RWMutex
		table map[string]*notification.Publisher
	}

	subscriberTable struct {
		sync.RWMutex
		table map[string]*notification.Subscriber
	}

	preferenceTable struct {
		sync.RWMutex
		table map[int64]map[preference.Key]string
	}

	userTable struct {
		sync.RWMutex
		table map[int64]*user.User
	}

	contextKey struct {
		kind string
		id   int64
	}

	contextTable struct {
		sync.RWMutex
		table map[contextKey]string
	}
)

func Open() (*DB, error) {
	db := &DB{
		publisher:  &publisherTable{table: make(map[string]*notification.Publisher)},
		subscriber: &subscriberTable{table: make(map[string]*notification.Subscriber)},
		preference: &preferenceTable{table: make(map[int64]map[preference.Key]string)},
		user:       &userTable{table: make(map[int64]*user.User)},
		context:    &contextTable{table: make(map[contextKey]string)},
	}
	return db, nil
}
