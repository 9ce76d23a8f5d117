package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	dErrors "inclusao/pkg/domain-errors"
	limits "inclusao/pkg/platform/validation"
)

// Field error messages shown inline next to the inputs.
const (
	MsgNameTooShort = "Nome deve ter pelo menos 3 caracteres"
	MsgNameTooLong  = "Nome deve ter no máximo 120 caracteres"
	MsgPhoneFormat  = "Formato inválido. Use (99) 99999-9999"
	MsgRequired     = "Campo obrigatório"
	MsgEmail        = "E-mail inválido"
	MsgInvalid      = "Valor inválido"
)

// MinNameLength is counted in runes after trimming.
const MinNameLength = 3

var phonePattern = regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return IsFullName(fl.Field().String())
	})
	_ = v.RegisterValidation("namemax", func(fl validator.FieldLevel) bool {
		return limits.CheckStringLength("nome", fl.Field().String(), limits.MaxNameLength) == nil
	})
	_ = v.RegisterValidation("phonebr", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// IsFullName reports whether the trimmed name has at least MinNameLength runes.
func IsFullName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) >= MinNameLength
}

// IsPhone reports whether phone is exactly "(DD) DDDDD-DDDD".
func IsPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Validate validates a struct and returns a CodeValidation domain error
// carrying the first field message.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// Fields validates a struct and returns one message per failing field, keyed
// by the field's form name. A nil map means the struct is valid.
func Fields(req any) map[string]string {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return map[string]string{"": MsgInvalid}
	}
	out := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

// ErrorMessage converts a validator error into the message shown to the user.
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return MsgInvalid
	}
	return message(validationErrs[0])
}

func message(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "fullname":
		return MsgNameTooShort
	case "namemax":
		return MsgNameTooLong
	case "phonebr":
		return MsgPhoneFormat
	case "required", "notblank":
		return MsgRequired
	case "email":
		return MsgEmail
	default:
		return MsgInvalid
	}
}
