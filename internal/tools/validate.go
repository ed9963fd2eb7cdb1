package tools

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrInvalidInput is matched by every argument decoding or validation failure.
var ErrInvalidInput = errors.New("invalid tool input")

// ValidationError reports the first failing argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

type inputValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

func newInputValidator() *inputValidator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())

	// report argument names as the agent sends them
	v.RegisterTagNameFunc(jsonName)

	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &inputValidator{v: v, trans: trans}
}

func (iv *inputValidator) check(in any) error {
	err := iv.v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: fe.Translate(iv.trans)}
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		// non-struct input types have nothing to validate
		return nil
	}
	return &ValidationError{Message: err.Error()}
}

func jsonName(fld reflect.StructField) string {
	tag := fld.Tag.Get("json")
	if tag == "-" || tag == "" {
		return fld.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	return tag
}
