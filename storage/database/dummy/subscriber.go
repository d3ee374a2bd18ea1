package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/masomo-notify/core/notification"
)

type subscriberRepository struct {
	db   *subscriberTable
	pubs *publisherTable
}

var _ notification.SubscriberRepository = (*subscriberRepository)(nil) // interface compliance check

func NewSubscriberRepository(db *DB) notification.SubscriberRepository {
	return &subscriberRepository{db: db.subscriber, pubs: db.publisher}
}

func (repo *subscriberRepository) find(identityID int64, publisherID string) *notification.Subscriber {
	for _, sub := range repo.db.table {
		if sub.IdentityID == identityID && sub.PublisherID == publisherID {
			return sub
		}
	}
	return nil
}

// filter returns the enabled subscribers matching keep, oldest first.
func (repo *subscriberRepository) filter(keep func(sub *notification.Subscriber) bool) []notification.Subscriber {
	subs := make([]notification.Subscriber, 0)
	for _, sub := range repo.db.table {
		if sub.Enabled && keep(sub) {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs
}

func (repo *subscriberRepository) CreateOrEnableSubscriber(_ context.Context, sub notification.Subscriber) (notification.Subscriber, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if found := repo.find(sub.IdentityID, sub.PublisherID); found != nil {
		if !found.Enabled {
			found.Enabled = true
			found.LastSeen = sub.LastSeen
		}
		return *found, nil
	}
	sub.Enabled = true
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subscriberRepository) GetSubscriber(_ context.Context, identityID int64, publisherID string) (notification.Subscriber, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub := repo.find(identityID, publisherID); sub != nil {
		return *sub, nil
	}
	return notification.Subscriber{}, notification.ErrSubscriberNotFound
}

func (repo *subscriberRepository) GetSubscriberByID(_ context.Context, id string) (notification.Subscriber, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return notification.Subscriber{}, notification.ErrSubscriberNotFound
}

func (repo *subscriberRepository) DisableSubscriber(_ context.Context, identityID int64, publisherID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if sub := repo.find(identityID, publisherID); sub != nil {
		sub.Enabled = false
	}
	return nil
}

func (repo *subscriberRepository) ListSubscribersByPublisher(_ context.Context, publisherID string) ([]notification.Subscriber, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(sub *notification.Subscriber) bool { return sub.PublisherID == publisherID }), nil
}

func (repo *subscriberRepository) ListSubscribersByIdentity(_ context.Context, identityID int64) ([]notification.Subscriber, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(sub *notification.Subscriber) bool { return sub.IdentityID == identityID }), nil
}

func (repo *subscriberRepository) ListSubscribedIdentities(_ context.Context) ([]int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.pubs.RLock()
	defer repo.pubs.RUnlock()

	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, sub := range repo.db.table {
		if !sub.Enabled {
			continue
		}
		if pub, ok := repo.pubs.table[sub.PublisherID]; !ok || !pub.IsValid() {
			continue
		}
		if _, ok := seen[sub.IdentityID]; !ok {
			seen[sub.IdentityID] = struct{}{}
			ids = append(ids, sub.IdentityID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *subscriberRepository) UpdateSubscriberLastSeen(_ context.Context, id string, seen time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return notification.ErrSubscriberNotFound
	}
	if seen.After(sub.LastSeen) {
		sub.LastSeen = seen
	}
	return nil
}

func (repo *subscriberRepository) ResetSubscriberLastSeen(_ context.Context, id string, seen time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return notification.ErrSubscriberNotFound
	}
	sub.LastSeen = seen
	return nil
}
