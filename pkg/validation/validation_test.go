package validation

import (
	"strings"
	"testing"

	dErrors "inclusao/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	FullName string `form:"fullName" validate:"fullname"`
	Phone    string `form:"phone" validate:"phonebr"`
}

type credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"notblank"`
}

func TestIsFullNameDependsOnlyOnTrimmedLength(t *testing.T) {
	for n := 0; n <= 6; n++ {
		name := "  " + strings.Repeat("ã", n) + "\t"
		assert.Equal(t, n >= MinNameLength, IsFullName(name), "length %d", n)
	}
}

func TestIsPhone(t *testing.T) {
	valid := []string{"(11) 91234-5678", "(00) 00000-0000"}
	invalid := []string{"", "11912345678", "(11)91234-5678", "(11) 1234-5678", "(11) 91234-56789", " (11) 91234-5678", "(1a) 91234-5678"}

	for _, p := range valid {
		assert.True(t, IsPhone(p), p)
	}
	for _, p := range invalid {
		assert.False(t, IsPhone(p), p)
	}
}

func TestFields(t *testing.T) {
	t.Run("reports every failing field by form name", func(t *testing.T) {
		got := Fields(signup{FullName: "Jo", Phone: "(11) 9123"})
		assert.Equal(t, map[string]string{
			"fullName": MsgNameTooShort,
			"phone":    MsgPhoneFormat,
		}, got)
	})

	t.Run("nil for a valid struct", func(t *testing.T) {
		assert.Nil(t, Fields(signup{FullName: "João Silva", Phone: "(11) 91234-5678"}))
	})

	t.Run("generic tags", func(t *testing.T) {
		got := Fields(credentials{Email: "x", Password: "   "})
		assert.Equal(t, MsgEmail, got["email"])
		assert.Equal(t, MsgRequired, got["password"])
	})
}

func TestValidateReturnsDomainError(t *testing.T) {
	err := Validate(signup{FullName: "Jo", Phone: "(11) 91234-5678"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, MsgNameTooShort, err.Error())

	assert.NoError(t, Validate(signup{FullName: "Ana", Phone: "(11) 91234-5678"}))
}
