package dummydb

import (
	"context"

	"github.com/trezcool/masomo-notify/core/notification"
)

// ContextNameRepository stores the display names of courses, groups...
type ContextNameRepository struct {
	db *contextTable
}

var _ notification.ContextNames = (*ContextNameRepository)(nil) // interface compliance check

func NewContextNameRepository(db *DB) *ContextNameRepository {
	return &ContextNameRepository{db: db.context}
}

func (repo *ContextNameRepository) ContextName(_ context.Context, kind string, id int64) (string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if name, ok := repo.db.table[contextKey{kind, id}]; ok {
		return name, nil
	}
	return "", notification.ErrContextNotFound
}

func (repo *ContextNameRepository) SaveContextName(_ context.Context, kind string, id int64, name string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[contextKey{kind, id}] = name
	return nil
}

func (repo *ContextNameRepository) DeleteContextName(_ context.Context, kind string, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, contextKey{kind, id})
	return nil
}
