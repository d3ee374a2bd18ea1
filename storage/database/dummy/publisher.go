package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/masomo-notify/core/notification"
)

type publisherRepository struct {
	db *publisherTable
}

var _ notification.PublisherRepository = (*publisherRepository)(nil) // interface compliance check

func NewPublisherRepository(db *DB) notification.PublisherRepository {
	return &publisherRepository{db: db.publisher}
}

// find returns the active publisher of sc, else the most recent one.
func (repo *publisherRepository) find(sc notification.SubscriptionContext) *notification.Publisher {
	var found *notification.Publisher
	for _, pub := range repo.db.table {
		if pub.Context() != sc {
			continue
		}
		if pub.IsValid() {
			return pub
		}
		if found == nil || pub.CreatedAt.After(found.CreatedAt) {
			found = pub
		}
	}
	return found
}

func (repo *publisherRepository) FindOrCreatePublisher(_ context.Context, pub notification.Publisher) (notification.Publisher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if found := repo.find(pub.Context()); found != nil && found.IsValid() {
		return *found, nil
	}
	repo.db.table[pub.ID] = &pub
	return pub, nil
}

func (repo *publisherRepository) GetPublisher(_ context.Context, sc notification.SubscriptionContext) (notification.Publisher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pub := repo.find(sc); pub != nil {
		return *pub, nil
	}
	return notification.Publisher{}, notification.ErrPublisherNotFound
}

func (repo *publisherRepository) GetPublisherByID(_ context.Context, id string) (notification.Publisher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pub, ok := repo.db.table[id]; ok {
		return *pub, nil
	}
	return notification.Publisher{}, notification.ErrPublisherNotFound
}

func (repo *publisherRepository) MarkPublisherNews(_ context.Context, sc notification.SubscriptionContext, at time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pub := repo.find(sc)
	if pub == nil || !pub.IsValid() {
		return false, nil
	}
	if at.After(pub.LatestNews) {
		pub.LatestNews = at
	}
	return true, nil
}

func (repo *publisherRepository) DeactivatePublisher(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	pub, ok := repo.db.table[id]
	if !ok {
		return notification.ErrPublisherNotFound
	}
	pub.State = notification.StateDeactivated
	return nil
}

func (repo *publisherRepository) UpdatePublisherData(_ context.Context, id string, data notification.PublisherData) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	pub, ok := repo.db.table[id]
	if !ok {
		return notification.ErrPublisherNotFound
	}
	pub.Data = data.Data
	pub.BusinessPath = data.BusinessPath
	return nil
}
