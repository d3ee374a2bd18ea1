// Package forum notifies about new threads and replies in course forums.
package forum

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

// ResourceType of forums. The sub path is empty for a whole forum, or "thread/<id>" for one thread.
const ResourceType = "forum"

var ErrForumNotFound = errors.New("forum not found")

// Translation keys
const (
	TitleKey     = "forum.title"
	NewThreadKey = "forum.item.thread"
	ReplyKey     = "forum.item.reply"
)

var Messages = core.Messages{
	core.LocaleEnglish: {
		TitleKey:     "Forum {0}",
		NewThreadKey: "New thread \"{0}\" by {1}",
		ReplyKey:     "{1} replied to \"{0}\"",
	},
	core.LocaleFrench: {
		TitleKey:     "Forum {0}",
		NewThreadKey: "Nouveau sujet « {0} » par {1}",
		ReplyKey:     "{1} a répondu à « {0} »",
	},
}

type (
	Forum struct {
		ID      int64
		Name    string
		Deleted bool
	}

	// Message is a forum post. A thread starts with the message whose ID is its ThreadID.
	Message struct {
		ID        int64
		ForumID   int64
		ThreadID  int64
		Subject   string
		Author    string
		CreatedAt time.Time
	}

	// MessageSource reads forums from the platform.
	MessageSource interface {
		GetForum(ctx context.Context, id int64) (Forum, error)
		// MessagesSince returns the messages posted strictly after since, oldest first.
		// threadID 0 means every thread of the forum.
		MessagesSince(ctx context.Context, forumID, threadID int64, since time.Time) ([]Message, error)
	}

	Handler struct {
		source  MessageSource
		titles  notification.Titles
		baseURL string
	}
)

func (m Message) IsThread() bool { return m.ID == m.ThreadID }

var _ notification.Handler = (*Handler)(nil) // interface compliance check

func NewHandler(source MessageSource, titles notification.Titles, baseURL string) *Handler {
	return &Handler{source: source, titles: titles, baseURL: strings.TrimRight(baseURL, "/")}
}

// ThreadSubPath is the sub path to follow only one thread.
func ThreadSubPath(threadID int64) string {
	return "thread/" + strconv.FormatInt(threadID, 10)
}

// threadID parses ThreadSubPath; anything else means the whole forum.
func threadID(subPath string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(subPath, "thread/"), 10, 64)
	if err != nil || !strings.HasPrefix(subPath, "thread/") {
		return 0
	}
	return id
}

func (h *Handler) ComputeChanges(ctx context.Context, req notification.ChangeRequest) (notification.SubscriptionInfo, error) {
	pub := req.Publisher
	f, err := h.source.GetForum(ctx, pub.ResourceID)
	if err != nil {
		if errors.Is(err, ErrForumNotFound) {
			return notification.SubscriptionInfo{}, notification.NewResourceGoneError(pub.Context(), err.Error())
		}
		return notification.SubscriptionInfo{}, errors.Wrap(err, "getting forum")
	}
	if f.Deleted {
		return notification.SubscriptionInfo{}, notification.NewResourceGoneError(pub.Context(), "forum deleted")
	}

	msgs, err := h.source.MessagesSince(ctx, f.ID, threadID(pub.SubPath), req.Since)
	if err != nil {
		return notification.SubscriptionInfo{}, errors.Wrap(err, "listing messages")
	}
	if len(msgs) == 0 {
		return notification.SubscriptionInfo{}, nil
	}

	items := make([]notification.ListItem, 0, len(msgs))
	for _, msg := range msgs {
		key, icon := ReplyKey, "icon-reply"
		if msg.IsThread() {
			key, icon = NewThreadKey, "icon-comments"
		}
		items = append(items, notification.ListItem{
			Description: core.T(req.Translator, key, msg.Subject, msg.Author),
			URL:         h.messageURL(msg),
			Timestamp:   msg.CreatedAt,
			IconClass:   icon,
		})
	}
	return notification.SubscriptionInfo{
		Title: h.titles.InContext(ctx, req.Translator, TitleKey, f.Name, pub.BusinessPath),
		Items: items,
	}, nil
}

func (h *Handler) messageURL(msg Message) string {
	if h.baseURL == "" {
		return ""
	}
	return h.baseURL + "/forums/" + strconv.FormatInt(msg.ForumID, 10) +
		"/threads/" + strconv.FormatInt(msg.ThreadID, 10) + "#message-" + strconv.FormatInt(msg.ID, 10)
}
