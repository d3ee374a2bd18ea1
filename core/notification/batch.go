package notification

import (
	"context"
	htmltmpl "html/template"
	"net/mail"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-notify/core"
)

// ErrRecipientUnavailable is returned by resolvers for identities that must not get emails (inactive, no address).
var ErrRecipientUnavailable = errors.New("recipient unavailable")

const digestTemplate = "digest"

type (
	Recipient struct {
		Address mail.Address
		Locale  string
	}

	// RecipientResolver finds where (and in which language) to send an identity's digest.
	RecipientResolver interface {
		Recipient(ctx context.Context, identityID int64) (Recipient, error)
	}

	BatchConfig struct {
		AppName        string
		BaseURL        string
		Workers        int
		HandlerTimeout time.Duration
		Metrics        metrics.Registry // defaults to metrics.DefaultRegistry
	}

	BatchReport struct {
		Identities int
		Sent       int
		Empty      int
		Skipped    int
		Failed     int
	}

	// DigestSection is one publisher's part of a digest email.
	DigestSection struct {
		Title string
		Text  string
		HTML  htmltmpl.HTML
	}

	DigestEmail struct {
		Greeting string
		Sections []DigestSection
	}

	// Batch emails every subscribed identity the digest of all its subscriptions.
	Batch struct {
		subs       SubscriberRepository
		reads      ReadMarker
		digester   *Digester
		recipients RecipientResolver
		mailer     core.EmailService
		log        core.Logger
		conf       BatchConfig

		sent, empty, skipped, failed metrics.Counter
		duration                     metrics.Timer
	}

	// IdentityResult tells how the digest email of one identity went.
	IdentityResult int
)

const (
	ResultSent IdentityResult = iota
	ResultEmpty
	ResultSkipped
	ResultFailed
)

func (r IdentityResult) String() string {
	switch r {
	case ResultSent:
		return "sent"
	case ResultEmpty:
		return "empty"
	case ResultSkipped:
		return "skipped"
	case ResultFailed:
		return "failed"
	}
	return "result(" + strconv.Itoa(int(r)) + ")"
}

func NewBatch(subs SubscriberRepository, reads ReadMarker, digester *Digester, recipients RecipientResolver, mailer core.EmailService, logger core.Logger, conf BatchConfig) *Batch {
	if conf.Workers <= 0 {
		conf.Workers = 1
	}
	if conf.Metrics == nil {
		conf.Metrics = metrics.DefaultRegistry
	}
	if conf.HandlerTimeout > 0 {
		digester = digester.WithTimeout(conf.HandlerTimeout)
	}
	return &Batch{
		subs:       subs,
		reads:      reads,
		digester:   digester,
		recipients: recipients,
		mailer:     mailer,
		log:        logger,
		conf:       conf,
		sent:       metrics.GetOrRegisterCounter("notification.digest.sent", conf.Metrics),
		empty:      metrics.GetOrRegisterCounter("notification.digest.empty", conf.Metrics),
		skipped:    metrics.GetOrRegisterCounter("notification.digest.skipped", conf.Metrics),
		failed:     metrics.GetOrRegisterCounter("notification.digest.failed", conf.Metrics),
		duration:   metrics.GetOrRegisterTimer("notification.digest.identity", conf.Metrics),
	}
}

// Run processes every subscribed identity on a bounded pool of workers.
// Failures are isolated per identity; only listing identities (or ctx cancellation) fails the run.
func (b *Batch) Run(ctx context.Context) (BatchReport, error) {
	ids, err := b.subs.ListSubscribedIdentities(ctx)
	if err != nil {
		return BatchReport{}, errors.Wrap(err, "listing subscribed identities")
	}

	var (
		mu     sync.Mutex
		report = BatchReport{Identities: len(ids)}
		g      errgroup.Group
	)
	g.SetLimit(b.conf.Workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			res := b.RunIdentity(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case ResultSent:
				report.Sent++
			case ResultEmpty:
				report.Empty++
			case ResultSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	b.log.Info("digest batch done", map[string]interface{}{
		"identities": report.Identities,
		"sent":       report.Sent,
		"empty":      report.Empty,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	})
	return report, ctx.Err()
}

// RunIdentity emails identityID its digest, and marks the included subscriptions read once sent.
func (b *Batch) RunIdentity(ctx context.Context, identityID int64) IdentityResult {
	start := time.Now()
	defer b.duration.UpdateSince(start)

	fields := map[string]interface{}{"identity": identityID}
	res, err := b.runIdentity(ctx, identityID)
	switch res {
	case ResultSent:
		b.sent.Inc(1)
	case ResultEmpty:
		b.empty.Inc(1)
	case ResultSkipped:
		b.skipped.Inc(1)
		b.log.Debug("digest skipped", err, fields)
	default:
		b.failed.Inc(1)
		b.log.Error("sending digest", err, fields)
	}
	return res
}

func (b *Batch) runIdentity(ctx context.Context, identityID int64) (IdentityResult, error) {
	rcpt, err := b.recipients.Recipient(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrRecipientUnavailable) {
			return ResultSkipped, err
		}
		return ResultFailed, errors.Wrap(err, "resolving recipient")
	}

	subs, err := b.subs.ListSubscribersByIdentity(ctx, identityID)
	if err != nil {
		return ResultFailed, errors.Wrap(err, "listing subscriptions")
	}

	trans := b.digester.Translator(rcpt.Locale)
	digests := make([]Digest, 0, len(subs))
	sections := make([]DigestSection, 0, len(subs))
	for _, sub := range subs {
		dg := b.digester.GetDigest(ctx, sub, rcpt.Locale, MimeTypeText)
		if dg.IsEmpty() {
			continue
		}
		digests = append(digests, dg)
		sections = append(sections, DigestSection{
			Title: dg.Info.Title,
			Text:  dg.Rendered,
			HTML:  htmltmpl.HTML(dg.Info.SpecificInfo(MimeTypeHTML, trans)), // items are escaped by SpecificInfo
		})
	}
	if len(digests) == 0 {
		return ResultEmpty, nil
	}

	name := rcpt.Address.Name
	if name == "" {
		name = rcpt.Address.Address
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{rcpt.Address},
		Subject:      core.T(trans, DigestSubjectKey, b.conf.AppName),
		TemplateName: digestTemplate,
		TemplateData: DigestEmail{
			Greeting: core.T(trans, DigestGreetKey, name),
			Sections: sections,
		},
		BaseURL: b.conf.BaseURL,
	}
	if err := b.mailer.SendMessage(ctx, msg); err != nil {
		return ResultFailed, errors.Wrap(err, "sending email")
	}

	for _, dg := range digests {
		if err := b.reads.MarkRead(ctx, dg.Subscriber, dg.ComputedAt); err != nil {
			b.log.Error("marking digest read", err, map[string]interface{}{"identity": identityID, "subscriber": dg.Subscriber.ID})
		}
	}
	return ResultSent, nil
}
