package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-notify/core/notification"
)

type eventLog struct {
	mu     sync.Mutex
	events []notification.NewsEvent
}

func (l *eventLog) record(evt notification.NewsEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) all() []notification.NewsEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]notification.NewsEvent(nil), l.events...)
}

func TestLiveFeed(t *testing.T) {
	feed := notification.NewLiveFeed()
	var one, all eventLog
	unwatch := feed.Watch(forum(1), one.record)
	defer feed.WatchAll(all.record)()

	feed.Announce(forum(1))()
	feed.Announce(forum(2))()
	unwatch()
	feed.Announce(forum(1))()

	require.Len(t, one.all(), 1)
	assert.Equal(t, forum(1), one.all()[0].Context)
	assert.Len(t, all.all(), 3)
}

func TestProducer_MarkNews(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	sub := e.subscribe(t, 10, forum(1))
	feed := notification.NewLiveFeed()
	var events eventLog
	defer feed.WatchAll(events.record)()

	producer := notification.NewProducer(e.svc, feed)
	at := e.clock.Advance(1)
	producer.MarkNews(ctx, notification.SubscriptionContext{ResourceType: " forum ", ResourceID: 1})

	pub, err := e.svc.FindPublisher(ctx, forum(1))
	require.NoError(t, err)
	assert.Equal(t, at, pub.LatestNews)
	assert.True(t, pub.HasNewsSince(sub.LastSeen))

	// the live feed is best effort: wait for delivery through another announcement
	feed.Announce(forum(9))()
	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, forum(1), got[0].Context)

	// without a feed, only the durable marker is used
	at = e.clock.Advance(1)
	notification.NewProducer(e.svc, nil).MarkNews(ctx, forum(1))
	pub, err = e.svc.FindPublisher(ctx, forum(1))
	require.NoError(t, err)
	assert.Equal(t, at, pub.LatestNews)
}
