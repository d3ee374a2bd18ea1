package notification

import "time"

// SetNow freezes the clock used by the package; call the returned func to restore it.
func SetNow(now func() time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = now
	return func() { nowFunc = prev }
}

func CacheKey(pub Publisher, identityID int64, since time.Time, locale string) string {
	return cacheKey(pub, identityID, since.UnixNano(), locale)
}
