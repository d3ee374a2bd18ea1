package calendar

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/preference"
)

// PreferenceNamespace holds the calendars a user subscribed to or declined.
const PreferenceNamespace = "calendar"

// AutoSubscriber subscribes users to a calendar the first time they view it,
// unless they unsubscribed from it before.
type AutoSubscriber struct {
	svc   *notification.Service
	prefs preference.Store
}

func NewAutoSubscriber(svc *notification.Service, prefs preference.Store) *AutoSubscriber {
	return &AutoSubscriber{svc: svc, prefs: prefs}
}

func (a *AutoSubscriber) optOut(ctx context.Context, identityID int64) (*preference.OptOut, error) {
	prefs, err := a.prefs.Load(ctx, identityID)
	if err != nil {
		return nil, errors.Wrap(err, "loading preferences")
	}
	return preference.NewOptOut(prefs, PreferenceNamespace), nil
}

// Viewed reports whether identityID is subscribed to the calendar after viewing it.
func (a *AutoSubscriber) Viewed(ctx context.Context, identityID, courseID int64, calendar string) (bool, error) {
	return a.subscribe(ctx, identityID, courseID, calendar, false)
}

// Subscribe subscribes identityID explicitly, overriding an earlier unsubscription.
func (a *AutoSubscriber) Subscribe(ctx context.Context, identityID, courseID int64, calendar string) error {
	_, err := a.subscribe(ctx, identityID, courseID, calendar, true)
	return err
}

func (a *AutoSubscriber) subscribe(ctx context.Context, identityID, courseID int64, calendar string, force bool) (bool, error) {
	sc := Context(courseID, calendar)
	key := sc.Key()
	opt, err := a.optOut(ctx, identityID)
	if err != nil {
		return false, err
	}
	if !force {
		if opt.IsDeclined(key) {
			return false, nil
		}
		if opt.IsSubscribed(key) {
			// the preference may be ahead of the registry; subscribe again when it is
			if ok, err := a.svc.IsSubscribed(ctx, identityID, sc); err != nil || ok {
				return ok, err
			}
		}
	}

	// the preference is only saved once the subscription exists
	if _, err := a.svc.Subscribe(ctx, identityID, sc, Data(courseID, calendar)); err != nil {
		return false, err
	}
	if _, err := opt.Subscribe(ctx, key, force); err != nil {
		return false, errors.Wrap(err, "saving preferences")
	}
	return true, nil
}

// Unsubscribe unsubscribes identityID and remembers it, so that viewing the calendar again does not resubscribe.
func (a *AutoSubscriber) Unsubscribe(ctx context.Context, identityID, courseID int64, calendar string) error {
	sc := Context(courseID, calendar)
	opt, err := a.optOut(ctx, identityID)
	if err != nil {
		return err
	}
	if err := opt.Unsubscribe(ctx, sc.Key()); err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	return a.svc.Unsubscribe(ctx, identityID, sc)
}
