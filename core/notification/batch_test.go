package notification_test

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/user"
	emailsvc "github.com/trezcool/masomo-notify/services/email"
	dummydb "github.com/trezcool/masomo-notify/storage/database/dummy"
	testutil "github.com/trezcool/masomo-notify/tests"
)

// flakyMailer fails for the addresses in down, and delegates the rest.
type flakyMailer struct {
	core.EmailService
	down map[string]bool
}

func (m *flakyMailer) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	for _, to := range msg.To {
		if m.down[to.Address] {
			return errors.New("smtp: mailbox unavailable")
		}
	}
	return m.EmailService.SendMessage(ctx, msg)
}

type batchEnv struct {
	*env
	mailer  *emailsvc.ConsoleService
	metrics metrics.Registry
}

func newBatchEnv(t *testing.T) *batchEnv {
	e := newEnv(t)
	users := dummydb.NewUserRepository(e.db)
	testutil.CreateUser(t, users, 10, "Alice", "alice@masomo.test", "en", true)
	testutil.CreateUser(t, users, 11, "Bob", "bob@masomo.test", "en", false)
	testutil.CreateUser(t, users, 12, "Chantal", "chantal@masomo.test", "fr", true)
	return &batchEnv{
		env:     e,
		mailer:  emailsvc.NewConsoleServiceMock(testutil.NewConfig()),
		metrics: metrics.NewRegistry(),
	}
}

func (e *batchEnv) batch(t *testing.T, mailer core.EmailService) *notification.Batch {
	return e.batchWith(t, mailer, e.svc)
}

func (e *batchEnv) batchWith(t *testing.T, mailer core.EmailService, reads notification.ReadMarker) *notification.Batch {
	resolver := user.NewService(dummydb.NewUserRepository(e.db), testutil.NewTranslators(t))
	return notification.NewBatch(e.subs, reads, e.digester, resolver, mailer, testutil.NewLogger(), notification.BatchConfig{
		AppName: "Masomo",
		BaseURL: "https://masomo.test",
		Workers: 2,
		Metrics: e.metrics,
	})
}

func (e *batchEnv) count(name string) int64 {
	return e.metrics.Get(name).(metrics.Counter).Count()
}

func TestBatch_Run(t *testing.T) {
	ctx := context.Background()
	e := newBatchEnv(t)

	alice := e.subscribe(t, 10, forum(1))
	e.subscribe(t, 10, forum(2))
	e.subscribe(t, 11, forum(1))
	e.subscribe(t, 12, forum(2))
	e.post(forum(1), "Exam dates")

	report, err := e.batch(t, e.mailer).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.BatchReport{Identities: 3, Sent: 1, Empty: 1, Skipped: 1}, report)
	assert.Equal(t, int64(1), e.count("notification.digest.sent"))
	assert.Equal(t, int64(1), e.count("notification.digest.skipped"))

	sent := e.mailer.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, []mail.Address{{Name: "Alice", Address: "alice@masomo.test"}}, msg.To)
	assert.Equal(t, "Masomo: what's new", msg.Subject)
	assert.Contains(t, msg.TextContent, "Hello Alice")
	assert.Contains(t, msg.TextContent, "Forum General")
	assert.Contains(t, msg.TextContent, "- Exam dates (")
	assert.Contains(t, msg.HTMLContent, `<ul class="o_subscription_items">`)
	assert.Contains(t, msg.HTMLContent, "Exam dates")

	// the delivered subscription is marked read; nothing is sent twice
	assert.True(t, e.reload(t, alice).LastSeen.After(alice.LastSeen))
	report, err = e.batch(t, e.mailer).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Len(t, e.mailer.SentMessages(), 1)
}

func TestBatch_Run_failedDelivery(t *testing.T) {
	ctx := context.Background()
	e := newBatchEnv(t)

	alice := e.subscribe(t, 10, forum(1))
	chantal := e.subscribe(t, 12, forum(1))
	e.post(forum(1), "Exam dates")

	flaky := &flakyMailer{EmailService: e.mailer, down: map[string]bool{"alice@masomo.test": true}}
	report, err := e.batch(t, flaky).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)

	// the failure is isolated and nothing was marked read for the failed identity
	assert.Equal(t, alice.LastSeen, e.reload(t, alice).LastSeen)
	assert.True(t, e.reload(t, chantal).LastSeen.After(chantal.LastSeen))

	// once the mailbox is back, the news are delivered
	delete(flaky.down, "alice@masomo.test")
	report, err = e.batch(t, flaky).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	sent := e.mailer.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "alice@masomo.test", sent[1].To[0].Address)
	assert.Contains(t, sent[1].TextContent, "Exam dates")
}

func TestBatch_RunIdentity(t *testing.T) {
	ctx := context.Background()
	e := newBatchEnv(t)
	e.subscribe(t, 12, forum(1))
	e.post(forum(1), "Devoir")

	b := e.batch(t, e.mailer)
	assert.Equal(t, notification.ResultSkipped, b.RunIdentity(ctx, 99)) // unknown user
	assert.Equal(t, notification.ResultSkipped, b.RunIdentity(ctx, 11)) // inactive
	assert.Equal(t, notification.ResultSent, b.RunIdentity(ctx, 12))
	assert.Equal(t, notification.ResultEmpty, b.RunIdentity(ctx, 12))

	sent := e.mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Masomo : quoi de neuf", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Bonjour Chantal")
}

func TestBatch_Run_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newBatchEnv(t)
	e.subscribe(t, 10, forum(1))

	_, err := e.batch(t, e.mailer).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.mailer.SentMessages())
}

// recordingReads records MarkRead calls and forwards them to next, if any.
type recordingReads struct {
	mu   sync.Mutex
	next notification.ReadMarker
	subs []string
}

func (r *recordingReads) MarkRead(ctx context.Context, sub notification.Subscriber, computedAt time.Time) error {
	r.mu.Lock()
	r.subs = append(r.subs, sub.ID)
	r.mu.Unlock()
	if r.next == nil {
		return errors.New("db down")
	}
	return r.next.MarkRead(ctx, sub, computedAt)
}

func TestBatch_Run_marksReadThroughService(t *testing.T) {
	ctx := context.Background()
	e := newBatchEnv(t)
	alice := e.subscribe(t, 10, forum(1))
	e.subscribe(t, 10, forum(2))
	e.post(forum(1), "Exam dates")

	reads := &recordingReads{next: e.svc}
	report, err := e.batchWith(t, e.mailer, reads).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, []string{alice.ID}, reads.subs)
	assert.True(t, e.reload(t, alice).LastSeen.After(alice.LastSeen))
}

func TestBatch_Run_markReadFailure(t *testing.T) {
	ctx := context.Background()
	e := newBatchEnv(t)
	alice := e.subscribe(t, 10, forum(1))
	e.post(forum(1), "Exam dates")

	reads := &recordingReads{}
	report, err := e.batchWith(t, e.mailer, reads).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, []string{alice.ID}, reads.subs)
	assert.Equal(t, alice.LastSeen, e.reload(t, alice).LastSeen)
}
