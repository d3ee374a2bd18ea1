package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/user"
)

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.app.DB, args[0], args[1:]...)
}

// addUser adds a user to the recipient directory.
func (cli *commandLine) addUser(ctx context.Context, id int64, name, email, locale string) error {
	usr, err := cli.app.Users.Create(ctx, user.NewUser{ID: id, Name: name, Email: email, Locale: locale})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "user %d <%s> added\n", usr.ID, usr.Email)
	return nil
}

func (cli *commandLine) subscribe(ctx context.Context, identityID int64, sc notification.SubscriptionContext, data notification.PublisherData, force bool) error {
	subscribe := cli.app.Notifications.Subscribe
	if force {
		subscribe = cli.app.Notifications.Resubscribe
	}
	sub, err := subscribe(ctx, identityID, sc, data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "subscriber %s (publisher %s)\n", sub.ID, sub.PublisherID)
	return nil
}

func (cli *commandLine) deactivate(ctx context.Context, sc notification.SubscriptionContext) error {
	pub, err := cli.app.Notifications.FindPublisher(ctx, sc)
	if err != nil {
		return err
	}
	return cli.app.Notifications.Deactivate(ctx, pub.ID)
}

func (cli *commandLine) subscribers(ctx context.Context, sc notification.SubscriptionContext) error {
	pub, err := cli.app.Notifications.FindPublisher(ctx, sc)
	if err != nil {
		return err
	}
	subs, err := cli.app.Notifications.ListSubscribers(ctx, pub.ID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "publisher %s (%s), latest news %s\n", pub.ID, pub.State, pub.LatestNews.Format(timeFormat))
	for _, sub := range subs {
		_, _ = fmt.Fprintf(cli.out, "  %d\tlast seen %s\n", sub.IdentityID, sub.LastSeen.Format(timeFormat))
	}
	return nil
}

func (cli *commandLine) subscriptions(ctx context.Context, identityID int64) error {
	subs, err := cli.app.Notifications.Subscriptions(ctx, identityID)
	if err != nil {
		return err
	}
	for _, s := range subs {
		news := ""
		if s.Publisher.HasNewsSince(s.Subscriber.LastSeen) {
			news = "\t(news)"
		}
		_, _ = fmt.Fprintf(cli.out, "%s\t%s%s\n", s.Publisher.Context(), s.Publisher.State, news)
	}
	return nil
}

func (cli *commandLine) digest(ctx context.Context, identityID int64) error {
	if identityID != 0 {
		res := cli.app.Batch.RunIdentity(ctx, identityID)
		_, _ = fmt.Fprintf(cli.out, "identity %d: %s\n", identityID, res)
		return nil
	}
	report, err := cli.app.Batch.Run(ctx)
	_, _ = fmt.Fprintf(cli.out, "%d identities: %d sent, %d empty, %d skipped, %d failed\n",
		report.Identities, report.Sent, report.Empty, report.Skipped, report.Failed)
	return err
}
