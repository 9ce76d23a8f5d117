package validation

import (
	"fmt"
	"unicode/utf8"

	dErrors "inclusao/pkg/domain-errors"
)

// MaxBodySize caps form and JSON request bodies (16 KB).
const MaxBodySize = 16 * 1024

// Input length limits, counted in runes.
const (
	MaxNameLength     = 120
	MaxPhoneLength    = 32
	MaxEmailLength    = 255
	MaxPasswordLength = 72 // bcrypt ignores anything longer
)

// CheckStringLength fails with CodeValidation when value has more than max
// runes.
func CheckStringLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s excede o limite de %d caracteres", fieldName, max))
	}
	return nil
}

// Limit pairs a field label with its value and limit for CheckAll.
type Limit struct {
	Field string
	Value string
	Max   int
}

// CheckAll returns the first violated limit.
func CheckAll(limits ...Limit) error {
	for _, l := range limits {
		if err := CheckStringLength(l.Field, l.Value, l.Max); err != nil {
			return err
		}
	}
	return nil
}
