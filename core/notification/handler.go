package notification

import (
	"context"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
)

type (
	// ChangeRequest is what a Handler gets to compute the changes of one publisher for one subscriber.
	ChangeRequest struct {
		Subscriber Subscriber
		Publisher  Publisher
		Locale     string
		Translator ut.Translator
		Since      time.Time // only changes strictly after Since are news
	}

	// Handler computes the changed items of one resource type.
	//
	// Handlers must not mutate publishers or subscribers. They return an empty SubscriptionInfo
	// when nothing changed, and a *ResourceGoneError when the resource cannot be resolved anymore.
	// They are only invoked when Since is strictly before Publisher.LatestNews.
	Handler interface {
		ComputeChanges(ctx context.Context, req ChangeRequest) (SubscriptionInfo, error)
	}

	// HandlerFunc allows the use of ordinary functions as handlers.
	HandlerFunc func(ctx context.Context, req ChangeRequest) (SubscriptionInfo, error)

	// Registry maps resource type names to their handler. It is built once at startup.
	Registry struct {
		handlers map[string]Handler
	}
)

func (f HandlerFunc) ComputeChanges(ctx context.Context, req ChangeRequest) (SubscriptionInfo, error) {
	return f(ctx, req)
}

func NewRegistry(handlers map[string]Handler) *Registry {
	reg := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for typ, h := range handlers {
		if h != nil {
			reg.handlers[typ] = h
		}
	}
	return reg
}

func (r *Registry) Handler(resourceType string) (Handler, bool) {
	h, ok := r.handlers[resourceType]
	return h, ok
}

func (r *Registry) ResourceTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for typ := range r.handlers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
