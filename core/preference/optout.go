package preference

import (
	"context"
	"encoding/json"
	"sort"
)

// Opt-out sets keys
const (
	KeySubscribed = "subscribed"
	KeyDeclined   = "declined"
)

// OptOut tracks, per namespace, the business paths a user subscribed to or explicitly declined.
// It only drives default behaviors (e.g. auto-subscribing on first visit) and is not synchronized
// with publishers and subscribers. A path is never in both sets.
type OptOut struct {
	prefs     Preferences
	namespace string
}

func NewOptOut(prefs Preferences, namespace string) *OptOut {
	return &OptOut{prefs: prefs, namespace: namespace}
}

func (o *OptOut) IsSubscribed(path string) bool {
	_, ok := o.set(KeySubscribed)[path]
	return ok
}

func (o *OptOut) IsDeclined(path string) bool {
	_, ok := o.set(KeyDeclined)[path]
	return ok
}

// Subscribe adds path to the subscribed set, unless the user declined it before and force is false.
// It reports whether path is subscribed afterwards.
func (o *OptOut) Subscribe(ctx context.Context, path string, force bool) (bool, error) {
	subscribed, declined := o.set(KeySubscribed), o.set(KeyDeclined)
	if _, ok := declined[path]; ok {
		if !force {
			return false, nil
		}
		delete(declined, path)
		o.put(KeyDeclined, declined)
	}
	if _, ok := subscribed[path]; ok && !force {
		return true, nil
	}
	subscribed[path] = struct{}{}
	o.put(KeySubscribed, subscribed)
	return true, o.prefs.Save(ctx)
}

// Unsubscribe moves path to the declined set, which suppresses later implicit subscriptions.
func (o *OptOut) Unsubscribe(ctx context.Context, path string) error {
	subscribed, declined := o.set(KeySubscribed), o.set(KeyDeclined)
	delete(subscribed, path)
	declined[path] = struct{}{}
	o.put(KeySubscribed, subscribed)
	o.put(KeyDeclined, declined)
	return o.prefs.Save(ctx)
}

// set decodes a stored JSON array; unreadable values count as empty.
func (o *OptOut) set(key string) map[string]struct{} {
	set := make(map[string]struct{})
	raw, ok := o.prefs.Get(o.namespace, key)
	if !ok || raw == "" {
		return set
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return set
	}
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func (o *OptOut) put(key string, set map[string]struct{}) {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	raw, _ := json.Marshal(paths)
	o.prefs.Put(o.namespace, key, string(raw))
}
