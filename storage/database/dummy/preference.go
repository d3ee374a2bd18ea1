package dummydb

import (
	"context"

	"github.com/trezcool/masomo-notify/core/preference"
)

type preferenceRepository struct {
	db *preferenceTable
}

var _ preference.Repository = (*preferenceRepository)(nil) // interface compliance check

func NewPreferenceRepository(db *DB) preference.Repository {
	return &preferenceRepository{db: db.preference}
}

func (repo *preferenceRepository) LoadPreferences(_ context.Context, identityID int64) (map[preference.Key]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	values := make(map[preference.Key]string, len(repo.db.table[identityID]))
	for k, v := range repo.db.table[identityID] {
		values[k] = v
	}
	return values, nil
}

func (repo *preferenceRepository) SavePreferences(_ context.Context, identityID int64, values map[preference.Key]string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[identityID]
	if !ok {
		stored = make(map[preference.Key]string, len(values))
		repo.db.table[identityID] = stored
	}
	for k, v := range values {
		stored[k] = v
	}
	return nil
}
