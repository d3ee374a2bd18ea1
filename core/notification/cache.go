package notification

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Cache keeps computed SubscriptionInfo. Keys embed every input of the computation,
// so entries never need to be invalidated.
type Cache interface {
	Get(key string) (SubscriptionInfo, bool)
	Add(key string, info SubscriptionInfo)
	Purge()
}

type LRUCache struct {
	lru *lru.Cache
}

var _ Cache = (*LRUCache)(nil) // interface compliance check

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating digest cache")
	}
	return &LRUCache{lru: c}, nil
}

func (c *LRUCache) Get(key string) (SubscriptionInfo, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return SubscriptionInfo{}, false
	}
	info, ok := v.(SubscriptionInfo)
	return info, ok
}

func (c *LRUCache) Add(key string, info SubscriptionInfo) { c.lru.Add(key, info) }
func (c *LRUCache) Purge()                                { c.lru.Purge() }
func (c *LRUCache) Len() int                              { return c.lru.Len() }

// cacheKey is per identity, as handlers may tailor their items to the subscriber.
// It changes whenever the publisher gets news, the comparison point moves or the locale differs.
func cacheKey(pub Publisher, identityID int64, since int64, locale string) string {
	return strings.Join([]string{
		pub.ID,
		strconv.FormatInt(identityID, 10),
		strconv.FormatInt(pub.LatestNews.UnixNano(), 10),
		strconv.FormatInt(since, 10),
		locale,
	}, "|")
}
