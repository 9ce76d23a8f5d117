package models

import (
	"errors"
	"regexp"
	"strings"

	limits "inclusao/pkg/platform/validation"
	s "inclusao/pkg/string"
	"inclusao/pkg/validation"
)

// Field names a form input. Values match the HTML input names.
type Field string

const (
	FieldName  Field = "fullName"
	FieldPhone Field = "phone"
)

// FieldErrors maps each failing field to its inline message.
type FieldErrors map[Field]string

// Has reports whether field has an error.
func (fe FieldErrors) Has(field Field) bool {
	_, ok := fe[field]
	return ok
}

// maxPhoneDigits is the digit count of a complete mobile number with area code.
const maxPhoneDigits = 11

var phoneGroups = regexp.MustCompile(`^(\d{2})?(\d{5})?(\d{4})?`)

// clampPhone keeps the first MaxPhoneLength runes of raw phone input so an
// oversized paste is never echoed back whole.
func clampPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if limits.CheckStringLength("telefone", raw, limits.MaxPhoneLength) == nil {
		return raw
	}
	return string([]rune(raw)[:limits.MaxPhoneLength])
}

// FormatPhone renders raw input as "(DD) DDDDD-DDDD" while it is being
// typed. Non-digits are dropped; groups are decorated only once complete and
// leftover digits trail the last group. Input with more than 11 digits is
// returned unchanged.
func FormatPhone(raw string) string {
	digits := s.DigitsOnly(raw)
	if len(digits) > maxPhoneDigits {
		return raw
	}

	m := phoneGroups.FindStringSubmatch(digits)
	var b strings.Builder
	if m[1] != "" {
		b.WriteString("(" + m[1])
	}
	if m[2] != "" {
		b.WriteString(") " + m[2])
	}
	if m[3] != "" {
		b.WriteString("-" + m[3])
	}
	b.WriteString(digits[len(m[0]):])
	return b.String()
}

// ValidateField checks one field. It is pure and safe to call per keystroke.
func ValidateField(field Field, value string) error {
	switch field {
	case FieldName:
		if !validation.IsFullName(value) {
			return errors.New(validation.MsgNameTooShort)
		}
		if limits.CheckStringLength("nome", value, limits.MaxNameLength) != nil {
			return errors.New(validation.MsgNameTooLong)
		}
	case FieldPhone:
		if !validation.IsPhone(value) {
			return errors.New(validation.MsgPhoneFormat)
		}
	}
	return nil
}

// Form is the public sign-up form.
type Form struct {
	FullName string `form:"fullName" validate:"fullname,namemax"`
	Phone    string `form:"phone" validate:"phonebr"`
}

// Sanitize trims the name and reformats the phone.
func (f *Form) Sanitize() {
	f.FullName = s.CollapseSpaces(f.FullName)
	f.Phone = FormatPhone(clampPhone(f.Phone))
}

// Validate returns every field error; an empty result means submittable.
func (f Form) Validate() FieldErrors {
	out := FieldErrors{}
	for name, msg := range validation.Fields(f) {
		out[Field(name)] = msg
	}
	return out
}

// ToNew maps a valid form to the insert payload.
func (f Form) ToNew() NewRegistration {
	return NewRegistration{Name: f.FullName, Phone: f.Phone}
}

// ValidationError blocks a submission before any remote call.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if msg, ok := e.Fields[FieldName]; ok {
		return msg
	}
	for _, msg := range e.Fields {
		return msg
	}
	return validation.MsgInvalid
}

// EditForm is the dashboard inline editor.
type EditForm struct {
	Name  string `form:"fullName" validate:"fullname,namemax"`
	Phone string `form:"phone" validate:"phonebr"`
}

func (f *EditForm) Sanitize() {
	f.Name = s.CollapseSpaces(f.Name)
	f.Phone = FormatPhone(clampPhone(f.Phone))
}

func (f EditForm) ToPatch() RegistrationPatch {
	return RegistrationPatch{Name: f.Name, Phone: f.Phone}
}
