package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo-notify/apps/shared"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	app *shared.App
	out io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                   - run a goose migration command (up, down, status...)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -id ID -name NAME -email EMAIL [-locale L]       - add a user to the directory")
	_, _ = fmt.Fprintln(cli.out, "  subscribe -identity ID -type T -id ID [-subpath S] [-data D] [-path P] [-force]")
	_, _ = fmt.Fprintln(cli.out, "  unsubscribe -identity ID -type T -id ID [-subpath S]")
	_, _ = fmt.Fprintln(cli.out, "  marknews -type T -id ID [-subpath S]                     - record new content")
	_, _ = fmt.Fprintln(cli.out, "  deactivate -type T -id ID [-subpath S]                   - stop notifying about a resource")
	_, _ = fmt.Fprintln(cli.out, "  subscribers -type T -id ID [-subpath S]                  - list the subscribed identities")
	_, _ = fmt.Fprintln(cli.out, "  subscriptions -identity ID                               - list the subscriptions of an identity")
	_, _ = fmt.Fprintln(cli.out, "  digest [-identity ID]                                    - email the digests now")
}

type contextFlags struct {
	resourceType *string
	resourceID   *int64
	subPath      *string
}

func newContextFlags(fs *flag.FlagSet) contextFlags {
	return contextFlags{
		resourceType: fs.String("type", "", "The resource type (folder, forum, calendar...)."),
		resourceID:   fs.Int64("id", 0, "The resource id."),
		subPath:      fs.String("subpath", "", "The sub-section of the resource, if any."),
	}
}

func (f contextFlags) context() notification.SubscriptionContext {
	return notification.SubscriptionContext{ResourceType: *f.resourceType, ResourceID: *f.resourceID, SubPath: *f.subPath}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	newFlagSet := func(name string) *flag.FlagSet {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(cli.out)
		return fs
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		cmd := newFlagSet("adduser")
		id := cmd.Int64("id", 0, "The user id, as known by the platform.")
		name := cmd.String("name", "", "The user's name.")
		email := cmd.String("email", "", "The user's email.")
		locale := cmd.String("locale", "", "The user's language (en, fr).")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *id == 0 || *name == "" || *email == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *id, *name, *email, *locale)

	case "subscribe":
		cmd := newFlagSet("subscribe")
		identity := cmd.Int64("identity", 0, "The subscribing user id.")
		sc := newContextFlags(cmd)
		data := cmd.String("data", "", "The resource data used by its handler (e.g. the folder path).")
		path := cmd.String("path", "", "The business path of the resource, e.g. [course:12][folder:4].")
		force := cmd.Bool("force", false, "Restart the subscription from now.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *identity == 0 || *sc.resourceType == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.subscribe(ctx, *identity, sc.context(), notification.PublisherData{Data: *data, BusinessPath: *path}, *force)

	case "unsubscribe":
		cmd := newFlagSet("unsubscribe")
		identity := cmd.Int64("identity", 0, "The user id.")
		sc := newContextFlags(cmd)
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *identity == 0 || *sc.resourceType == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.app.Notifications.Unsubscribe(ctx, *identity, sc.context())

	case "marknews", "deactivate", "subscribers":
		cmd := newFlagSet(args[1])
		sc := newContextFlags(cmd)
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sc.resourceType == "" {
			cmd.Usage()
			return errHelp
		}
		switch args[1] {
		case "marknews":
			cli.app.Producer.MarkNews(ctx, sc.context())
			return nil
		case "deactivate":
			return cli.deactivate(ctx, sc.context())
		default:
			return cli.subscribers(ctx, sc.context())
		}

	case "subscriptions":
		cmd := newFlagSet("subscriptions")
		identity := cmd.Int64("identity", 0, "The user id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *identity == 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.subscriptions(ctx, *identity)

	case "digest":
		cmd := newFlagSet("digest")
		identity := cmd.Int64("identity", 0, "Only email this user.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.digest(ctx, *identity)

	default:
		cli.printUsage()
		return errHelp
	}
}
