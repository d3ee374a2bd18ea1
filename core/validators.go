package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = map[string]string{LocaleEnglish: "only alphanumeric characters and underscores are allowed", LocaleFrench: "seuls les caractères alphanumériques et les tirets bas sont autorisés"}
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	resourceTypeTag   = "resourcetype"
	resourceTypeText  = map[string]string{LocaleEnglish: "invalid resource type", LocaleFrench: "type de ressource invalide"}
	resourceTypeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]*$`)

	requiredTag  = "required"
	requiredText = map[string]string{LocaleEnglish: "this field is required", LocaleFrench: "ce champ est obligatoire"}
)

// Validator returns the validator whose messages are registered on t, building it on first use.
// Validation translations can only be registered once per translator.
func (t *Translators) Validator() *validator.Validate {
	t.validateOnce.Do(func() { t.validate = NewValidator(t) })
	return t.validate
}

// NewValidator returns a validator with the custom masomo validations and translations registered.
func NewValidator(translators *Translators) *validator.Validate {
	validate := validator.New()
	InitValidators(validate, translators)
	return validate
}

// InitValidators registers the default & custom validations and their translations.
func InitValidators(validate *validator.Validate, translators *Translators) {
	enTrans := translators.Get(LocaleEnglish)
	frTrans := translators.Get(LocaleFrench)
	_ = en_translations.RegisterDefaultTranslations(validate, enTrans)
	_ = fr_translations.RegisterDefaultTranslations(validate, frTrans)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	_ = validate.RegisterValidation(resourceTypeTag, resourceTypeValidation)

	for _, trans := range []struct {
		locale string
		t      ut.Translator
	}{{LocaleEnglish, enTrans}, {LocaleFrench, frTrans}} {
		RegisterCustomTranslation(validate, trans.t, alphaNumUnderTag, alphaNumUnderText[trans.locale])
		RegisterCustomTranslation(validate, trans.t, resourceTypeTag, resourceTypeText[trans.locale])
		RegisterCustomTranslation(validate, trans.t, requiredTag, requiredText[trans.locale], true)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidateStruct validates s and maps validation failures to a *ValidationError with translated field errors.
func ValidateStruct(validate *validator.Validate, trans ut.Translator, s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		msg := vErr.Error()
		if trans != nil {
			msg = vErr.Translate(trans)
		}
		flds = append(flds, FieldError{Field: vErr.Field(), Error: msg})
	}
	return NewValidationError(errors.New("validation failed"), flds...)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// resourceTypeValidation accepts names like "forum", "CourseModule.folder" or "group-calendar".
func resourceTypeValidation(fl validator.FieldLevel) bool {
	return resourceTypeRegex.MatchString(fl.Field().String())
}
