package notification

import (
	"context"
	"time"
)

type (
	PublisherRepository interface {
		// FindOrCreatePublisher stores pub unless an active publisher already exists for its context,
		// and returns the stored active one. It never creates two active publishers for one context.
		FindOrCreatePublisher(ctx context.Context, pub Publisher) (Publisher, error)
		// GetPublisher returns the active publisher for sc, or the most recent deactivated one.
		GetPublisher(ctx context.Context, sc SubscriptionContext) (Publisher, error)
		GetPublisherByID(ctx context.Context, id string) (Publisher, error)
		// MarkPublisherNews moves LatestNews of the active publisher for sc forward to `at`.
		// It reports whether such a publisher exists; LatestNews never moves backward.
		MarkPublisherNews(ctx context.Context, sc SubscriptionContext, at time.Time) (bool, error)
		DeactivatePublisher(ctx context.Context, id string) error
		UpdatePublisherData(ctx context.Context, id string, data PublisherData) error
	}

	SubscriberRepository interface {
		// CreateOrEnableSubscriber stores sub, or enables the existing (identity, publisher) row.
		// A disabled row being enabled again takes sub.LastSeen; an enabled row is left untouched.
		CreateOrEnableSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error)
		GetSubscriber(ctx context.Context, identityID int64, publisherID string) (Subscriber, error)
		GetSubscriberByID(ctx context.Context, id string) (Subscriber, error)
		// DisableSubscriber is a no-op when the identity is not subscribed.
		DisableSubscriber(ctx context.Context, identityID int64, publisherID string) error
		// ListSubscribersByPublisher and ListSubscribersByIdentity only return enabled subscribers.
		ListSubscribersByPublisher(ctx context.Context, publisherID string) ([]Subscriber, error)
		ListSubscribersByIdentity(ctx context.Context, identityID int64) ([]Subscriber, error)
		// ListSubscribedIdentities returns the (sorted) identities having at least one enabled subscription
		// to an active publisher.
		ListSubscribedIdentities(ctx context.Context) ([]int64, error)
		// UpdateSubscriberLastSeen moves LastSeen forward to `seen`; it never moves backward.
		UpdateSubscriberLastSeen(ctx context.Context, id string, seen time.Time) error
		// ResetSubscriberLastSeen sets LastSeen to `seen` unconditionally.
		ResetSubscriberLastSeen(ctx context.Context, id string, seen time.Time) error
	}
)
