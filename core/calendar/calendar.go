// Package calendar notifies about course and group calendar events, and subscribes
// users to the calendars they look at.
package calendar

import (
	"context"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

// ResourceType of calendars: the resource id is the course id and the sub path the calendar name.
const ResourceType = "calendar"

// CourseCalendar is the name of the main calendar of a course.
const CourseCalendar = "course"

var ErrCalendarNotFound = errors.New("calendar not found")

// Translation keys
const (
	TitleKey    = "calendar.title"
	NewEventKey = "calendar.item.new"
	UpdatedKey  = "calendar.item.updated"
	CanceledKey = "calendar.item.canceled"
)

var Messages = core.Messages{
	core.LocaleEnglish: {
		TitleKey:    "Calendar {0}",
		NewEventKey: "New event: {0} ({1})",
		UpdatedKey:  "Updated: {0} ({1})",
		CanceledKey: "Canceled: {0} ({1})",
	},
	core.LocaleFrench: {
		TitleKey:    "Calendrier {0}",
		NewEventKey: "Nouvel événement : {0} ({1})",
		UpdatedKey:  "Modifié : {0} ({1})",
		CanceledKey: "Annulé : {0} ({1})",
	},
}

type (
	Event struct {
		ID        int64
		CourseID  int64
		Calendar  string
		Title     string
		Location  string
		StartsAt  time.Time
		CreatedAt time.Time
		UpdatedAt time.Time
		Canceled  bool
	}

	// EventSource reads calendars from the platform.
	EventSource interface {
		// CalendarTitle returns the display title of a calendar, or ErrCalendarNotFound.
		CalendarTitle(ctx context.Context, courseID int64, calendar string) (string, error)
		// EventsChangedSince returns the events created or updated strictly after since, oldest change first.
		EventsChangedSince(ctx context.Context, courseID int64, calendar string, since time.Time) ([]Event, error)
	}

	Handler struct {
		source  EventSource
		titles  notification.Titles
		baseURL string
	}
)

var _ notification.Handler = (*Handler)(nil) // interface compliance check

func NewHandler(source EventSource, titles notification.Titles, baseURL string) *Handler {
	return &Handler{source: source, titles: titles, baseURL: strings.TrimRight(baseURL, "/")}
}

// Context returns the subscription context of a calendar; an empty name is the course calendar.
func Context(courseID int64, calendar string) notification.SubscriptionContext {
	calendar = core.CleanString(calendar)
	if calendar == "" {
		calendar = CourseCalendar
	}
	return notification.SubscriptionContext{ResourceType: ResourceType, ResourceID: courseID, SubPath: calendar}
}

// Data returns the publisher data of a calendar.
func Data(courseID int64, calendar string) notification.PublisherData {
	sc := Context(courseID, calendar)
	return notification.PublisherData{
		Data:         sc.SubPath,
		BusinessPath: notification.BusinessPath(notification.ContextRef{Kind: notification.ContextCourse, ID: courseID}),
	}
}

func (h *Handler) ComputeChanges(ctx context.Context, req notification.ChangeRequest) (notification.SubscriptionInfo, error) {
	sc := Context(req.Publisher.ResourceID, req.Publisher.SubPath)
	title, err := h.source.CalendarTitle(ctx, sc.ResourceID, sc.SubPath)
	if err != nil {
		if errors.Is(err, ErrCalendarNotFound) {
			return notification.SubscriptionInfo{}, notification.NewResourceGoneError(req.Publisher.Context(), err.Error())
		}
		return notification.SubscriptionInfo{}, errors.Wrap(err, "getting calendar")
	}

	events, err := h.source.EventsChangedSince(ctx, sc.ResourceID, sc.SubPath, req.Since)
	if err != nil {
		return notification.SubscriptionInfo{}, errors.Wrap(err, "listing events")
	}
	if len(events) == 0 {
		return notification.SubscriptionInfo{}, nil
	}

	items := make([]notification.ListItem, 0, len(events))
	for _, evt := range events {
		key, icon := UpdatedKey, "icon-calendar"
		switch {
		case evt.Canceled:
			key, icon = CanceledKey, "icon-calendar-times"
		case req.Since.Before(evt.CreatedAt):
			key, icon = NewEventKey, "icon-calendar-plus"
		}
		items = append(items, notification.ListItem{
			Description: core.T(req.Translator, key, evt.Title, formatStart(evt.StartsAt, req.Translator)),
			URL:         h.eventURL(evt),
			Timestamp:   evt.UpdatedAt,
			IconClass:   icon,
		})
	}
	return notification.SubscriptionInfo{
		Title: h.titles.InContext(ctx, req.Translator, TitleKey, title, req.Publisher.BusinessPath),
		Items: items,
	}, nil
}

func formatStart(t time.Time, trans ut.Translator) string {
	if trans == nil {
		return t.Format("2006-01-02 15:04")
	}
	return trans.FmtDateFull(t) + " " + trans.FmtTimeShort(t)
}

func (h *Handler) eventURL(evt Event) string {
	if h.baseURL == "" {
		return ""
	}
	return h.baseURL + "/courses/" + strconv.FormatInt(evt.CourseID, 10) + "/calendar/events/" + strconv.FormatInt(evt.ID, 10)
}
