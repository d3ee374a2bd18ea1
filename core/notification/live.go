package notification

import (
	"context"
	"time"

	"github.com/juju/pubsub/v2"
)

// TopicNews is the live feed topic news events are published on.
const TopicNews = "notification.news"

type (
	// NewsEvent is pushed to live watchers; it carries no durable state.
	NewsEvent struct {
		Context SubscriptionContext
		At      time.Time
	}

	// LiveFeed broadcasts news to in-session listeners (e.g. to refresh an open page).
	// It is independent of publishers and subscribers: nothing is stored, missed events are lost.
	LiveFeed struct {
		hub *pubsub.SimpleHub
	}

	// Producer is the facade content producers use: it records the news durably, then announces it live.
	Producer struct {
		marker NewsMarker
		feed   *LiveFeed
	}
)

var _ NewsMarker = (*Producer)(nil) // interface compliance check

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{hub: pubsub.NewSimpleHub(nil)}
}

// Announce publishes a NewsEvent for sc. The returned func blocks until every watcher got it.
func (f *LiveFeed) Announce(sc SubscriptionContext) func() {
	return f.hub.Publish(TopicNews, NewsEvent{Context: sc, At: nowFunc()})
}

// Watch calls fn for every news event of sc until the returned func is called.
func (f *LiveFeed) Watch(sc SubscriptionContext, fn func(NewsEvent)) (unsubscribe func()) {
	return f.hub.Subscribe(TopicNews, func(_ string, data interface{}) {
		if evt, ok := data.(NewsEvent); ok && evt.Context == sc {
			fn(evt)
		}
	})
}

// WatchAll calls fn for every news event until the returned func is called.
func (f *LiveFeed) WatchAll(fn func(NewsEvent)) (unsubscribe func()) {
	return f.hub.Subscribe(TopicNews, func(_ string, data interface{}) {
		if evt, ok := data.(NewsEvent); ok {
			fn(evt)
		}
	})
}

// NewProducer returns a Producer; feed may be nil when there is no live listener.
func NewProducer(marker NewsMarker, feed *LiveFeed) *Producer {
	return &Producer{marker: marker, feed: feed}
}

func (p *Producer) MarkNews(ctx context.Context, sc SubscriptionContext) {
	sc.Clean()
	p.marker.MarkNews(ctx, sc)
	if p.feed != nil {
		p.feed.Announce(sc)
	}
}
