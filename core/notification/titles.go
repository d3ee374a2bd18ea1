package notification

import (
	"context"

	ut "github.com/go-playground/universal-translator"

	"github.com/trezcool/masomo-notify/core"
)

// Context kinds a resource may live in
const (
	ContextCourse = "course"
	ContextGroup  = "group"
)

// Translation keys
const (
	TitleGenericKey  = "notification.title.generic"
	TitleInCourseKey = "notification.title.course"
	TitleInGroupKey  = "notification.title.group"
	TitleScopedKey   = "notification.title.scoped"
	DigestSubjectKey = "notification.digest.subject"
	DigestGreetKey   = "notification.digest.greeting"
)

// Messages holds the engine's own translations; register them with core.Translators.Register.
var Messages = core.Messages{
	core.LocaleEnglish: {
		TitleGenericKey:  "New content",
		TitleInCourseKey: "New in course {0}",
		TitleInGroupKey:  "New in group {0}",
		TitleScopedKey:   "{0} ({1})",
		DigestSubjectKey: "{0}: what's new",
		DigestGreetKey:   "Hello {0}, here is what changed since your last visit.",
	},
	core.LocaleFrench: {
		TitleGenericKey:  "Nouveau contenu",
		TitleInCourseKey: "Nouveau dans le cours {0}",
		TitleInGroupKey:  "Nouveau dans le groupe {0}",
		TitleScopedKey:   "{0} ({1})",
		DigestSubjectKey: "{0} : quoi de neuf",
		DigestGreetKey:   "Bonjour {0}, voici ce qui a changé depuis votre dernière visite.",
	},
}

type (
	// ContextNames resolves the display name of the entity (course, group...) a resource lives in.
	ContextNames interface {
		ContextName(ctx context.Context, kind string, id int64) (string, error)
	}

	// ContextRef points at the entity a resource lives in.
	ContextRef struct {
		Kind string
		ID   int64
	}

	// Titles resolves digest titles like "New in course X".
	Titles struct {
		Names ContextNames
	}
)

var contextTitleKeys = map[string]string{
	ContextCourse: TitleInCourseKey,
	ContextGroup:  TitleInGroupKey,
}

// Title returns the localized title for a resource living in ref.
// It falls back to the generic title when the context is unknown or gone.
func (t Titles) Title(ctx context.Context, trans ut.Translator, ref ContextRef) string {
	key, ok := contextTitleKeys[ref.Kind]
	if !ok || t.Names == nil || ref.ID == 0 {
		return core.T(trans, TitleGenericKey)
	}
	name, err := t.Names.ContextName(ctx, ref.Kind, ref.ID)
	if err != nil || core.CleanString(name) == "" {
		return core.T(trans, TitleGenericKey)
	}
	return core.T(trans, key, name)
}

// Named returns the localized title `key` for a named resource, or the generic title when name is empty.
func (t Titles) Named(trans ut.Translator, key, name string) string {
	if core.CleanString(name) == "" {
		return core.T(trans, TitleGenericKey)
	}
	return core.T(trans, key, name)
}

// InContext returns Named(key, name), suffixed with the name of the first course or group of businessPath when it resolves.
func (t Titles) InContext(ctx context.Context, trans ut.Translator, key, name, businessPath string) string {
	title := t.Named(trans, key, name)
	ref, ok := FindContext(businessPath, ContextCourse, ContextGroup)
	if !ok || t.Names == nil {
		return title
	}
	scope, err := t.Names.ContextName(ctx, ref.Kind, ref.ID)
	if err != nil || core.CleanString(scope) == "" {
		return title
	}
	return core.T(trans, TitleScopedKey, title, scope)
}
