package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-notify/core/calendar"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/preference"
	dummydb "github.com/trezcool/masomo-notify/storage/database/dummy"
	testutil "github.com/trezcool/masomo-notify/tests"
)

var t0 = time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)

type memSource struct {
	titles map[string]string // by sub path
	events []calendar.Event
}

func (s *memSource) CalendarTitle(_ context.Context, courseID int64, cal string) (string, error) {
	title, ok := s.titles[cal]
	if !ok || courseID != 12 {
		return "", calendar.ErrCalendarNotFound
	}
	return title, nil
}

func (s *memSource) EventsChangedSince(_ context.Context, courseID int64, cal string, since time.Time) ([]calendar.Event, error) {
	var events []calendar.Event
	for _, evt := range s.events {
		if evt.CourseID == courseID && evt.Calendar == cal && since.Before(evt.UpdatedAt) {
			events = append(events, evt)
		}
	}
	return events, nil
}

func TestHandler_ComputeChanges(t *testing.T) {
	ctx := context.Background()
	trans := testutil.NewTranslators(t)
	require.NoError(t, trans.Register(calendar.Messages))

	db, _ := dummydb.Open()
	names := dummydb.NewContextNameRepository(db)
	require.NoError(t, names.SaveContextName(ctx, notification.ContextCourse, 12, "Algebra"))

	starts := time.Date(2021, 3, 8, 10, 0, 0, 0, time.UTC)
	source := &memSource{
		titles: map[string]string{calendar.CourseCalendar: "Lectures"},
		events: []calendar.Event{
			{ID: 1, CourseID: 12, Calendar: "course", Title: "Old", StartsAt: starts, CreatedAt: t0.Add(-time.Hour), UpdatedAt: t0.Add(-time.Hour)},
			{ID: 2, CourseID: 12, Calendar: "course", Title: "Lab", StartsAt: starts, CreatedAt: t0.Add(-time.Hour), UpdatedAt: t0.Add(time.Minute)},
			{ID: 3, CourseID: 12, Calendar: "course", Title: "Quiz", StartsAt: starts, CreatedAt: t0.Add(2 * time.Minute), UpdatedAt: t0.Add(2 * time.Minute)},
			{ID: 4, CourseID: 12, Calendar: "course", Title: "Trip", StartsAt: starts, CreatedAt: t0.Add(-time.Hour), UpdatedAt: t0.Add(3 * time.Minute), Canceled: true},
		},
	}
	handler := calendar.NewHandler(source, notification.Titles{Names: names}, "https://masomo.test")
	data := calendar.Data(12, "")
	request := func(courseID int64, cal string) notification.ChangeRequest {
		sc := calendar.Context(courseID, cal)
		return notification.ChangeRequest{
			Publisher: notification.Publisher{
				ResourceType: sc.ResourceType, ResourceID: sc.ResourceID, SubPath: sc.SubPath,
				Data: data.Data, BusinessPath: data.BusinessPath, State: notification.StateActive,
			},
			Locale:     "en",
			Translator: trans.Get("en"),
			Since:      t0,
		}
	}

	info, err := handler.ComputeChanges(ctx, request(12, ""))
	require.NoError(t, err)
	assert.Equal(t, "Calendar Lectures (Algebra)", info.Title)
	require.Len(t, info.Items, 3)
	assert.Contains(t, info.Items[0].Description, "Updated: Lab (")
	assert.Contains(t, info.Items[0].Description, "March 8, 2021")
	assert.Equal(t, "https://masomo.test/courses/12/calendar/events/2", info.Items[0].URL)
	assert.Contains(t, info.Items[1].Description, "New event: Quiz (")
	assert.Equal(t, "icon-calendar-plus", info.Items[1].IconClass)
	assert.Contains(t, info.Items[2].Description, "Canceled: Trip (")

	_, err = handler.ComputeChanges(ctx, request(13, ""))
	assert.True(t, notification.IsResourceGone(err))
	_, err = handler.ComputeChanges(ctx, request(12, "group/3"))
	assert.True(t, notification.IsResourceGone(err))
}

func TestContext(t *testing.T) {
	assert.Equal(t, "calendar:12:course", calendar.Context(12, " ").Key())
	assert.Equal(t, "calendar:12:group/3", calendar.Context(12, "group/3").Key())
	assert.Equal(t, "[course:12]", calendar.Data(12, "group/3").BusinessPath)
}

func TestAutoSubscriber(t *testing.T) {
	ctx := context.Background()
	db, _ := dummydb.Open()
	trans := testutil.NewTranslators(t)
	svc := notification.NewService(dummydb.NewPublisherRepository(db), dummydb.NewSubscriberRepository(db), trans, testutil.NewLogger())
	auto := calendar.NewAutoSubscriber(svc, preference.NewStore(dummydb.NewPreferenceRepository(db)))
	sc := calendar.Context(12, "")

	isSubscribed := func() bool {
		ok, err := svc.IsSubscribed(ctx, 10, sc)
		require.NoError(t, err)
		return ok
	}

	// first view subscribes
	ok, err := auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, isSubscribed())

	ok, err = auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.True(t, ok)

	// after unsubscribing, viewing does not subscribe again
	require.NoError(t, auto.Unsubscribe(ctx, 10, 12, ""))
	assert.False(t, isSubscribed())
	ok, err = auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, isSubscribed())

	// an explicit subscription wins
	require.NoError(t, auto.Subscribe(ctx, 10, 12, ""))
	assert.True(t, isSubscribed())
	ok, err = auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.True(t, ok)

	// other users are not affected
	ok, err = svc.IsSubscribed(ctx, 11, sc)
	require.NoError(t, err)
	assert.False(t, ok)
}

// flakySubscribers fails the next `failures` subscriptions.
type flakySubscribers struct {
	notification.SubscriberRepository
	failures int
}

func (r *flakySubscribers) CreateOrEnableSubscriber(ctx context.Context, sub notification.Subscriber) (notification.Subscriber, error) {
	if r.failures > 0 {
		r.failures--
		return notification.Subscriber{}, errors.New("db down")
	}
	return r.SubscriberRepository.CreateOrEnableSubscriber(ctx, sub)
}

func TestAutoSubscriber_failedSubscription(t *testing.T) {
	ctx := context.Background()
	db, _ := dummydb.Open()
	subs := &flakySubscribers{SubscriberRepository: dummydb.NewSubscriberRepository(db), failures: 1}
	svc := notification.NewService(dummydb.NewPublisherRepository(db), subs, testutil.NewTranslators(t), testutil.NewLogger())
	store := preference.NewStore(dummydb.NewPreferenceRepository(db))
	auto := calendar.NewAutoSubscriber(svc, store)
	sc := calendar.Context(12, "")

	isSubscribed := func() bool {
		ok, err := svc.IsSubscribed(ctx, 10, sc)
		require.NoError(t, err)
		return ok
	}
	prefSubscribed := func() bool {
		prefs, err := store.Load(ctx, 10)
		require.NoError(t, err)
		return preference.NewOptOut(prefs, calendar.PreferenceNamespace).IsSubscribed(sc.Key())
	}

	ok, err := auto.Viewed(ctx, 10, 12, "")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, isSubscribed())
	assert.False(t, prefSubscribed(), "preference saved without a subscription")

	// the next view subscribes
	ok, err = auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, isSubscribed())
	assert.True(t, prefSubscribed())
}

func TestAutoSubscriber_registryBehindPreference(t *testing.T) {
	ctx := context.Background()
	db, _ := dummydb.Open()
	svc := notification.NewService(dummydb.NewPublisherRepository(db), dummydb.NewSubscriberRepository(db), testutil.NewTranslators(t), testutil.NewLogger())
	auto := calendar.NewAutoSubscriber(svc, preference.NewStore(dummydb.NewPreferenceRepository(db)))
	sc := calendar.Context(12, "")

	ok, err := auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	require.True(t, ok)

	// disabled behind the preference's back
	require.NoError(t, svc.Unsubscribe(ctx, 10, sc))

	ok, err = auto.Viewed(ctx, 10, 12, "")
	require.NoError(t, err)
	assert.True(t, ok)
	subscribed, err := svc.IsSubscribed(ctx, 10, sc)
	require.NoError(t, err)
	assert.True(t, subscribed)
}
