package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/trezcool/masomo-notify/core/notification"
	testutil "github.com/trezcool/masomo-notify/tests"
)

type contextNames map[notification.ContextRef]string

func (n contextNames) ContextName(_ context.Context, kind string, id int64) (string, error) {
	name, ok := n[notification.ContextRef{Kind: kind, ID: id}]
	if !ok {
		return "", errors.New("not found")
	}
	return name, nil
}

func TestTitles_Title(t *testing.T) {
	ctx := context.Background()
	trans := testutil.NewTranslators(t)
	names := contextNames{
		{Kind: notification.ContextCourse, ID: 1}: "Algebra",
		{Kind: notification.ContextGroup, ID: 2}:  "Choir",
		{Kind: notification.ContextCourse, ID: 3}: "  ",
	}

	tests := []struct {
		name   string
		titles notification.Titles
		locale string
		ref    notification.ContextRef
		want   string
	}{
		{name: "course", titles: notification.Titles{Names: names}, locale: "en", ref: notification.ContextRef{Kind: "course", ID: 1}, want: "New in course Algebra"},
		{name: "group fr", titles: notification.Titles{Names: names}, locale: "fr", ref: notification.ContextRef{Kind: "group", ID: 2}, want: "Nouveau dans le groupe Choir"},
		{name: "unknown kind", titles: notification.Titles{Names: names}, locale: "en", ref: notification.ContextRef{Kind: "school", ID: 1}, want: "New content"},
		{name: "missing context", titles: notification.Titles{Names: names}, locale: "en", ref: notification.ContextRef{Kind: "course", ID: 9}, want: "New content"},
		{name: "blank name", titles: notification.Titles{Names: names}, locale: "fr", ref: notification.ContextRef{Kind: "course", ID: 3}, want: "Nouveau contenu"},
		{name: "no id", titles: notification.Titles{Names: names}, locale: "en", ref: notification.ContextRef{Kind: "course"}, want: "New content"},
		{name: "no names", locale: "en", ref: notification.ContextRef{Kind: "course", ID: 1}, want: "New content"},
		{name: "unsupported locale", titles: notification.Titles{Names: names}, locale: "sw", ref: notification.ContextRef{Kind: "course", ID: 1}, want: "New in course Algebra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.titles.Title(ctx, trans.Get(tt.locale), tt.ref); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitles_Named(t *testing.T) {
	trans := testutil.NewTranslators(t).Default()
	titles := notification.Titles{}

	if got := titles.Named(trans, notification.TitleInCourseKey, "Physics"); got != "New in course Physics" {
		t.Errorf("Named() = %q", got)
	}
	if got := titles.Named(trans, notification.TitleInCourseKey, ""); got != "New content" {
		t.Errorf("Named() = %q, want the generic title", got)
	}
}

func TestRegistry(t *testing.T) {
	noop := notification.HandlerFunc(func(context.Context, notification.ChangeRequest) (notification.SubscriptionInfo, error) {
		return notification.SubscriptionInfo{}, nil
	})
	reg := notification.NewRegistry(map[string]notification.Handler{
		"forum":    noop,
		"calendar": noop,
		"folder":   nil,
	})

	if _, ok := reg.Handler("forum"); !ok {
		t.Error("Handler(forum) not found")
	}
	if _, ok := reg.Handler("folder"); ok {
		t.Error("Handler(folder) found, want nil handlers skipped")
	}
	got := reg.ResourceTypes()
	if len(got) != 2 || got[0] != "calendar" || got[1] != "forum" {
		t.Errorf("ResourceTypes() = %v", got)
	}
}

func TestTitles_InContext(t *testing.T) {
	ctx := context.Background()
	trans := testutil.NewTranslators(t).Default()
	titles := notification.Titles{Names: contextNames{{Kind: notification.ContextCourse, ID: 12}: "Algebra"}}

	tests := []struct {
		name string
		bp   string
		want string
	}{
		{name: "course", bp: "[Course:12][Folder:4]", want: "New in course Slides (Algebra)"},
		{name: "unknown course", bp: "[Course:13][Folder:4]", want: "New in course Slides"},
		{name: "no context", bp: "[Folder:4]", want: "New in course Slides"},
		{name: "empty", bp: "", want: "New in course Slides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titles.InContext(ctx, trans, notification.TitleInCourseKey, "Slides", tt.bp); got != tt.want {
				t.Errorf("InContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseBusinessPath(t *testing.T) {
	bp := notification.BusinessPath(
		notification.ContextRef{Kind: "course", ID: 12},
		notification.ContextRef{Kind: "folder", ID: 4},
	)
	if bp != "[course:12][folder:4]" {
		t.Fatalf("BusinessPath() = %q", bp)
	}

	tests := []struct {
		bp   string
		want []notification.ContextRef
	}{
		{bp: bp, want: []notification.ContextRef{{Kind: "course", ID: 12}, {Kind: "folder", ID: 4}}},
		{bp: "[Forum:1][thread:x][:3][Group:7]", want: []notification.ContextRef{{Kind: "forum", ID: 1}, {Kind: "group", ID: 7}}},
		{bp: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.bp, func(t *testing.T) {
			got := notification.ParseBusinessPath(tt.bp)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseBusinessPath() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseBusinessPath()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}

	ref, ok := notification.FindContext("[Forum:1][Group:7]", notification.ContextCourse, notification.ContextGroup)
	if !ok || ref.ID != 7 {
		t.Errorf("FindContext() = %v, %v", ref, ok)
	}
}
