package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/im7mortal/kmutex"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
)

type (
	// NewsMarker is the narrow surface content producers use to signal new content.
	// MarkNews never fails loudly: a resource nobody subscribed to has no publisher yet.
	NewsMarker interface {
		MarkNews(ctx context.Context, sc SubscriptionContext)
	}

	// ReadMarker advances a subscriber's comparison point once a digest was delivered.
	ReadMarker interface {
		MarkRead(ctx context.Context, sub Subscriber, computedAt time.Time) error
	}

	// Service manages publishers and subscriptions.
	Service struct {
		pubs     PublisherRepository
		subs     SubscriberRepository
		validate *validator.Validate
		trans    *core.Translators
		log      core.Logger
		keys     *kmutex.Kmutex
	}
)

var (
	_ NewsMarker = (*Service)(nil) // interface compliance check
	_ ReadMarker = (*Service)(nil)
)

func NewService(pubs PublisherRepository, subs SubscriberRepository, translators *core.Translators, logger core.Logger) *Service {
	return &Service{
		pubs:     pubs,
		subs:     subs,
		validate: translators.Validator(),
		trans:    translators,
		log:      logger,
		keys:     kmutex.New(),
	}
}

func (svc *Service) cleanContext(sc SubscriptionContext) (SubscriptionContext, error) {
	sc.Clean()
	if err := core.ValidateStruct(svc.validate, svc.trans.Default(), sc); err != nil {
		return sc, err
	}
	return sc, nil
}

func validateIdentity(identityID int64) error {
	if identityID <= 0 {
		return core.NewValidationError(
			errors.New("validation failed"),
			core.FieldError{Field: "identity_id", Error: "invalid identity"},
		)
	}
	return nil
}

// FindPublisher returns the publisher of sc without creating one.
func (svc *Service) FindPublisher(ctx context.Context, sc SubscriptionContext) (Publisher, error) {
	sc, err := svc.cleanContext(sc)
	if err != nil {
		return Publisher{}, err
	}
	return svc.pubs.GetPublisher(ctx, sc)
}

// FindOrCreatePublisher returns the active publisher of sc, creating it with data on first use.
// Concurrent callers for the same context are serialized; other contexts proceed concurrently.
func (svc *Service) FindOrCreatePublisher(ctx context.Context, sc SubscriptionContext, data PublisherData) (Publisher, error) {
	sc, err := svc.cleanContext(sc)
	if err != nil {
		return Publisher{}, err
	}

	key := sc.Key()
	svc.keys.Lock(key)
	defer svc.keys.Unlock(key)

	pub, err := svc.pubs.GetPublisher(ctx, sc)
	switch {
	case err == nil && pub.IsValid():
		return pub, nil
	case err != nil && !errors.Is(err, ErrPublisherNotFound):
		return Publisher{}, errors.Wrap(err, "getting publisher")
	}

	pub, err = svc.pubs.FindOrCreatePublisher(ctx, newPublisher(uuid.NewString(), sc, data, nowFunc()))
	if err != nil {
		return Publisher{}, errors.Wrap(err, "creating publisher")
	}
	return pub, nil
}

// Subscribe subscribes identityID to sc, creating the publisher when identityID is its first subscriber.
func (svc *Service) Subscribe(ctx context.Context, identityID int64, sc SubscriptionContext, data PublisherData) (Subscriber, error) {
	if err := validateIdentity(identityID); err != nil {
		return Subscriber{}, err
	}
	pub, err := svc.FindOrCreatePublisher(ctx, sc, data)
	if err != nil {
		return Subscriber{}, err
	}

	now := nowFunc()
	sub, err := svc.subs.CreateOrEnableSubscriber(ctx, Subscriber{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		PublisherID: pub.ID,
		Enabled:     true,
		CreatedAt:   now,
		LastSeen:    now,
	})
	if err != nil {
		return Subscriber{}, errors.Wrap(err, "subscribing")
	}
	return sub, nil
}

// Resubscribe forces the subscription of identityID to sc and restarts it from now.
func (svc *Service) Resubscribe(ctx context.Context, identityID int64, sc SubscriptionContext, data PublisherData) (Subscriber, error) {
	sub, err := svc.Subscribe(ctx, identityID, sc, data)
	if err != nil {
		return Subscriber{}, err
	}
	now := nowFunc()
	if err := svc.subs.ResetSubscriberLastSeen(ctx, sub.ID, now); err != nil {
		return Subscriber{}, errors.Wrap(err, "resetting subscriber")
	}
	sub.LastSeen = now
	return sub, nil
}

// Unsubscribe disables the subscription of identityID to sc. The publisher is kept.
func (svc *Service) Unsubscribe(ctx context.Context, identityID int64, sc SubscriptionContext) error {
	if err := validateIdentity(identityID); err != nil {
		return err
	}
	pub, err := svc.FindPublisher(ctx, sc)
	if err != nil {
		if errors.Is(err, ErrPublisherNotFound) {
			return nil
		}
		return err
	}
	return errors.Wrap(svc.subs.DisableSubscriber(ctx, identityID, pub.ID), "unsubscribing")
}

func (svc *Service) IsSubscribed(ctx context.Context, identityID int64, sc SubscriptionContext) (bool, error) {
	pub, err := svc.FindPublisher(ctx, sc)
	if err != nil {
		if errors.Is(err, ErrPublisherNotFound) {
			return false, nil
		}
		return false, err
	}
	sub, err := svc.subs.GetSubscriber(ctx, identityID, pub.ID)
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.Enabled, nil
}

// MarkNews records that sc has new content now. It is a no-op when sc has no active publisher.
func (svc *Service) MarkNews(ctx context.Context, sc SubscriptionContext) {
	sc, err := svc.cleanContext(sc)
	if err != nil {
		svc.log.Warn("marking news: invalid context", err, map[string]interface{}{"resource": sc.String()})
		return
	}
	found, err := svc.pubs.MarkPublisherNews(ctx, sc, nowFunc())
	if err != nil {
		svc.log.Error("marking news", err, map[string]interface{}{"resource": sc.String()})
		return
	}
	if !found {
		svc.log.Debug("marking news: no publisher", map[string]interface{}{"resource": sc.String()})
	}
}

func (svc *Service) ListSubscribers(ctx context.Context, publisherID string) ([]Subscriber, error) {
	if _, err := svc.pubs.GetPublisherByID(ctx, publisherID); err != nil {
		return nil, err
	}
	return svc.subs.ListSubscribersByPublisher(ctx, publisherID)
}

// Subscriptions lists the enabled subscriptions of identityID with their publishers.
func (svc *Service) Subscriptions(ctx context.Context, identityID int64) ([]Subscription, error) {
	subs, err := svc.subs.ListSubscribersByIdentity(ctx, identityID)
	if err != nil {
		return nil, errors.Wrap(err, "listing subscribers")
	}
	res := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		pub, err := svc.pubs.GetPublisherByID(ctx, sub.PublisherID)
		if err != nil {
			if errors.Is(err, ErrPublisherNotFound) {
				continue
			}
			return nil, errors.Wrap(err, "getting publisher")
		}
		res = append(res, Subscription{Subscriber: sub, Publisher: pub})
	}
	return res, nil
}

// MarkRead advances sub's comparison point. Only call it once a digest was delivered or shown,
// with the Digest.ComputedAt captured before that digest was computed.
func (svc *Service) MarkRead(ctx context.Context, sub Subscriber, computedAt time.Time) error {
	return errors.Wrap(svc.subs.UpdateSubscriberLastSeen(ctx, sub.ID, computedAt), "marking read")
}

// Deactivate is idempotent.
func (svc *Service) Deactivate(ctx context.Context, publisherID string) error {
	return errors.Wrap(svc.pubs.DeactivatePublisher(ctx, publisherID), "deactivating publisher")
}

// UpdatePublisherData replaces the opaque data and business path of the active publisher of sc.
func (svc *Service) UpdatePublisherData(ctx context.Context, sc SubscriptionContext, data PublisherData) error {
	pub, err := svc.FindPublisher(ctx, sc)
	if err != nil {
		return err
	}
	if !pub.IsValid() {
		return ErrPublisherNotFound
	}
	return errors.Wrap(svc.pubs.UpdatePublisherData(ctx, pub.ID, data), "updating publisher")
}
