package core

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Supported locales
const (
	LocaleEnglish = "en"
	LocaleFrench  = "fr"
)

// Messages maps a locale to its {key: text} translations. Texts may use {0}, {1}... placeholders.
type Messages map[string]map[string]string

// Translators gives access to one ut.Translator per supported locale.
type Translators struct {
	uni      *ut.UniversalTranslator
	fallback ut.Translator

	validateOnce sync.Once
	validate     *validator.Validate
}

func NewTranslators(defaultLocale string) *Translators {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, fr.New())

	fallback, found := uni.GetTranslator(normalizeLocale(defaultLocale))
	if !found {
		fallback, _ = uni.GetTranslator(LocaleEnglish)
	}
	return &Translators{uni: uni, fallback: fallback}
}

// Get returns the translator for locale (e.g. "fr", "fr-CD", "en_GB"), or the default one.
func (t *Translators) Get(locale string) ut.Translator {
	locale = normalizeLocale(locale)
	if trans, found := t.uni.GetTranslator(locale); found {
		return trans
	}
	if idx := strings.Index(locale, "_"); idx > 0 {
		if trans, found := t.uni.GetTranslator(locale[:idx]); found {
			return trans
		}
	}
	return t.fallback
}

// Default returns the default translator.
func (t *Translators) Default() ut.Translator { return t.fallback }

// Register adds msgs to the matching translators. Unknown locales are an error.
func (t *Translators) Register(msgs Messages) error {
	for locale, texts := range msgs {
		trans, found := t.uni.GetTranslator(locale)
		if !found {
			return errors.Errorf("registering messages: unsupported locale %q", locale)
		}
		for key, text := range texts {
			if err := trans.Add(key, text, true); err != nil {
				return errors.Wrapf(err, "registering message %q (%s)", key, locale)
			}
		}
	}
	return nil
}

// T translates key with params, falling back to the key itself when no translation exists.
func T(trans ut.Translator, key string, params ...string) string {
	if trans == nil {
		return key
	}
	s, err := trans.T(key, params...)
	if err != nil || s == "" {
		return key
	}
	return s
}

func normalizeLocale(locale string) string {
	locale = strings.Replace(CleanString(locale), "-", "_", -1)
	if idx := strings.Index(locale, "_"); idx > 0 {
		return strings.ToLower(locale[:idx]) + "_" + strings.ToUpper(locale[idx+1:])
	}
	return strings.ToLower(locale)
}
