package notification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-notify/core/notification"
	dummydb "github.com/trezcool/masomo-notify/storage/database/dummy"
	testutil "github.com/trezcool/masomo-notify/tests"
)

const resourceType = "forum"

type (
	testClock struct {
		mu  sync.Mutex
		now time.Time
	}

	entry struct {
		at   time.Time
		desc string
	}

	// newsLog is a fake resource store: each resource has a log of dated entries.
	newsLog struct {
		mu      sync.Mutex
		entries map[int64][]entry
		gone    map[int64]bool
		calls   int
		err     error
		during  func() // called while computing
	}

	env struct {
		db       *dummydb.DB
		clock    *testClock
		log      *newsLog
		pubs     notification.PublisherRepository
		subs     notification.SubscriberRepository
		svc      *notification.Service
		digester *notification.Digester
	}
)

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func newNewsLog() *newsLog {
	return &newsLog{entries: make(map[int64][]entry), gone: make(map[int64]bool)}
}

func (l *newsLog) add(resourceID int64, at time.Time, desc string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[resourceID] = append(l.entries[resourceID], entry{at: at, desc: desc})
}

func (l *newsLog) remove(resourceID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gone[resourceID] = true
}

func (l *newsLog) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *newsLog) ComputeChanges(_ context.Context, req notification.ChangeRequest) (notification.SubscriptionInfo, error) {
	l.mu.Lock()
	l.calls++
	during := l.during
	l.mu.Unlock()
	if during != nil {
		during()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return notification.SubscriptionInfo{}, l.err
	}
	if l.gone[req.Publisher.ResourceID] {
		return notification.SubscriptionInfo{}, notification.NewResourceGoneError(req.Publisher.Context(), "deleted")
	}
	info := notification.SubscriptionInfo{Title: "Forum " + req.Publisher.Data}
	for _, e := range l.entries[req.Publisher.ResourceID] {
		if req.Since.Before(e.at) {
			info.Items = append(info.Items, notification.ListItem{Description: e.desc, Timestamp: e.at})
		}
	}
	return info, nil
}

func newEnv(t *testing.T, opts ...notification.DigesterOption) *env {
	clock := &testClock{now: time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)}
	t.Cleanup(notification.SetNow(clock.Now))

	db, _ := dummydb.Open()
	pubs := dummydb.NewPublisherRepository(db)
	subs := dummydb.NewSubscriberRepository(db)
	trans := testutil.NewTranslators(t)
	logger := testutil.NewLogger()
	log := newNewsLog()

	registry := notification.NewRegistry(map[string]notification.Handler{resourceType: log})
	return &env{
		db:       db,
		clock:    clock,
		log:      log,
		pubs:     pubs,
		subs:     subs,
		svc:      notification.NewService(pubs, subs, trans, logger),
		digester: notification.NewDigester(pubs, registry, trans, logger, opts...),
	}
}

func forum(id int64) notification.SubscriptionContext {
	return notification.SubscriptionContext{ResourceType: resourceType, ResourceID: id}
}

func (e *env) subscribe(t *testing.T, identityID int64, sc notification.SubscriptionContext) notification.Subscriber {
	return testutil.Subscribe(t, e.svc, identityID, sc, notification.PublisherData{Data: "General", BusinessPath: "[Forum:1]"})
}

// reload returns the stored version of sub.
func (e *env) reload(t *testing.T, sub notification.Subscriber) notification.Subscriber {
	stored, err := e.subs.GetSubscriberByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("reloading subscriber: %v", err)
	}
	return stored
}

// post records a new forum entry and marks the news, like a producer would.
func (e *env) post(sc notification.SubscriptionContext, desc string) time.Time {
	at := e.clock.Advance(time.Second)
	e.log.add(sc.ResourceID, at, desc)
	e.svc.MarkNews(context.Background(), sc)
	return at
}
