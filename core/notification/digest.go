package notification

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
)

// nowFunc is mockable in tests
var nowFunc = func() time.Time { return time.Now().UTC() }

// Outcome tells how a digest computation ended.
type Outcome int

const (
	OutcomeNoPublisher Outcome = iota
	OutcomeDisabled
	OutcomeInvalid
	OutcomeUpToDate
	OutcomeNoNews
	OutcomeNews
	OutcomeResourceGone
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeNoPublisher:  "no-publisher",
	OutcomeDisabled:     "disabled",
	OutcomeInvalid:      "invalid",
	OutcomeUpToDate:     "up-to-date",
	OutcomeNoNews:       "no-news",
	OutcomeNews:         "news",
	OutcomeResourceGone: "resource-gone",
	OutcomeFailed:       "failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

type (
	// Digest is the result of GetDigest.
	// ComputedAt is taken before any computation and is what MarkRead must receive.
	Digest struct {
		Subscriber Subscriber
		Publisher  Publisher
		Info       SubscriptionInfo
		MimeType   string
		Rendered   string
		ComputedAt time.Time
		Outcome    Outcome
	}

	DigesterOption func(*Digester)

	// Digester computes digests. It never holds a lock while a handler runs, and
	// never lets a single publisher failure escape: failures are logged and yield an empty digest.
	Digester struct {
		pubs        PublisherRepository
		registry    *Registry
		translators *core.Translators
		log         core.Logger
		cache       Cache
		timeout     time.Duration
	}
)

func (d Digest) IsEmpty() bool { return !d.Info.HasNews() }

// WithCache makes the digester reuse previously computed infos.
func WithCache(c Cache) DigesterOption {
	return func(d *Digester) { d.cache = c }
}

// WithHandlerTimeout bounds every handler call; a timeout is handled like any other failure.
func WithHandlerTimeout(timeout time.Duration) DigesterOption {
	return func(d *Digester) { d.timeout = timeout }
}

func NewDigester(pubs PublisherRepository, registry *Registry, translators *core.Translators, logger core.Logger, opts ...DigesterOption) *Digester {
	d := &Digester{
		pubs:        pubs,
		registry:    registry,
		translators: translators,
		log:         logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithTimeout returns a copy of d bounding every handler call by timeout.
func (d *Digester) WithTimeout(timeout time.Duration) *Digester {
	cp := *d
	cp.timeout = timeout
	return &cp
}

func (d *Digester) Translator(locale string) ut.Translator {
	if d.translators == nil {
		return nil
	}
	return d.translators.Get(locale)
}

// GetDigest computes what changed for sub since its LastSeen and renders it as mimeType.
// It panics with an *UnknownMimeTypeError when mimeType is not supported.
func (d *Digester) GetDigest(ctx context.Context, sub Subscriber, locale, mimeType string) Digest {
	mustKnowMimeType(mimeType)

	dg := Digest{
		Subscriber: sub,
		MimeType:   mimeType,
		ComputedAt: nowFunc(),
	}
	if !sub.Enabled {
		dg.Outcome = OutcomeDisabled
		return dg
	}

	dg.Info, dg.Publisher, dg.Outcome = d.Compute(ctx, sub, locale, sub.LastSeen)
	if dg.Info.HasNews() {
		dg.Rendered = dg.Info.SpecificInfo(mimeType, d.Translator(locale))
	}
	return dg
}

// Compute runs the pipeline for sub against the comparison date `since`.
func (d *Digester) Compute(ctx context.Context, sub Subscriber, locale string, since time.Time) (SubscriptionInfo, Publisher, Outcome) {
	fields := map[string]interface{}{"subscriber": sub.ID, "publisher": sub.PublisherID}

	pub, err := d.pubs.GetPublisherByID(ctx, sub.PublisherID)
	if err != nil {
		if errors.Is(err, ErrPublisherNotFound) {
			return SubscriptionInfo{}, pub, OutcomeNoPublisher
		}
		d.log.Error("loading publisher", err, fields)
		return SubscriptionInfo{}, pub, OutcomeFailed
	}

	if !pub.IsValid() {
		return SubscriptionInfo{}, pub, OutcomeInvalid
	}
	if !pub.HasNewsSince(since) {
		return SubscriptionInfo{}, pub, OutcomeUpToDate
	}

	fields["resource"] = pub.Context().String()
	h, ok := d.registry.Handler(pub.ResourceType)
	if !ok {
		d.log.Error("computing changes", ErrNoHandler, fields)
		return SubscriptionInfo{}, pub, OutcomeFailed
	}

	key := cacheKey(pub, sub.IdentityID, since.UnixNano(), locale)
	if d.cache != nil {
		if info, found := d.cache.Get(key); found {
			return info, pub, outcomeOf(info)
		}
	}

	trans := d.Translator(locale)
	info, err := d.invoke(ctx, h, ChangeRequest{
		Subscriber: sub,
		Publisher:  pub,
		Locale:     locale,
		Translator: trans,
		Since:      since,
	})
	switch {
	case err == nil:
	case IsResourceGone(err):
		d.log.Warn("resource gone, deactivating publisher", err, fields)
		if err := d.pubs.DeactivatePublisher(ctx, pub.ID); err != nil {
			d.log.Error("deactivating publisher", err, fields)
		} else {
			pub.State = StateDeactivated
		}
		return SubscriptionInfo{}, pub, OutcomeResourceGone
	default:
		d.log.Error("computing changes", err, fields)
		return SubscriptionInfo{}, pub, OutcomeFailed
	}

	if d.cache != nil {
		d.cache.Add(key, info)
	}
	return info, pub, outcomeOf(info)
}

func outcomeOf(info SubscriptionInfo) Outcome {
	if info.HasNews() {
		return OutcomeNews
	}
	return OutcomeNoNews
}

// invoke calls h outside of any lock, converting panics into errors and enforcing d.timeout.
func (d *Digester) invoke(ctx context.Context, h Handler, req ChangeRequest) (SubscriptionInfo, error) {
	if d.timeout <= 0 {
		return safeCompute(ctx, h, req)
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		info SubscriptionInfo
		err  error
	}
	done := make(chan result, 1) // buffered: an abandoned handler must not leak blocked
	go func() {
		info, err := safeCompute(hctx, h, req)
		done <- result{info, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return SubscriptionInfo{}, &HandlerTimeoutError{ResourceType: req.Publisher.ResourceType, Timeout: d.timeout}
		}
		return res.info, res.err
	case <-hctx.Done():
		if ctx.Err() != nil {
			return SubscriptionInfo{}, ctx.Err()
		}
		return SubscriptionInfo{}, &HandlerTimeoutError{ResourceType: req.Publisher.ResourceType, Timeout: d.timeout}
	}
}

func safeCompute(ctx context.Context, h Handler, req ChangeRequest) (info SubscriptionInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s handler panicked: %v", req.Publisher.ResourceType, r)
		}
	}()
	return h.ComputeChanges(ctx, req)
}
