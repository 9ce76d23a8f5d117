package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inclusao/pkg/validation"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"1", "1"},
		{"11", "(11"},
		{"119", "(119"},
		{"1191234", "(11) 91234"},
		{"11912345", "(11) 912345"},
		{"11912345678", "(11) 91234-5678"},
		{"(11) 91234-5678", "(11) 91234-5678"},
		{"123456", "(12-3456"},
		{"abc", ""},
		// More than 11 digits passes through untouched.
		{"119123456789", "119123456789"},
		{"(11) 91234-56789", "(11) 91234-56789"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhone(tt.in), "FormatPhone(%q)", tt.in)
	}
}

func TestFormatPhoneIgnoresNoise(t *testing.T) {
	digits := "11912345678"
	noise := []string{" ", "-", "(", ")", "a", ".", "+", "ç"}
	want := FormatPhone(digits)

	for n := 0; n <= len(digits); n++ {
		prefix := digits[:n]
		for i, junk := range noise {
			var b strings.Builder
			for j, d := range prefix {
				b.WriteString(noise[(i+j)%len(noise)])
				b.WriteRune(d)
			}
			b.WriteString(junk)
			assert.Equal(t, FormatPhone(prefix), FormatPhone(b.String()), "noisy %q", b.String())
		}
	}
	assert.Equal(t, "(11) 91234-5678", want)
}

func TestFormatPhoneIsIdempotent(t *testing.T) {
	digits := "11912345678"
	for n := 0; n <= len(digits); n++ {
		once := FormatPhone(digits[:n])
		assert.Equal(t, once, FormatPhone(once), "prefix %q", digits[:n])
	}
}

func TestValidateField(t *testing.T) {
	t.Run("name depends only on trimmed length", func(t *testing.T) {
		for n := 0; n < 6; n++ {
			err := ValidateField(FieldName, "  "+strings.Repeat("é", n)+" ")
			if n < 3 {
				require.Error(t, err)
				assert.Equal(t, "Nome deve ter pelo menos 3 caracteres", err.Error())
			} else {
				assert.NoError(t, err)
			}
		}
	})

	t.Run("phone must match the exact mask", func(t *testing.T) {
		assert.NoError(t, ValidateField(FieldPhone, "(11) 91234-5678"))
		for _, bad := range []string{"", "(11) 9123-5678", "11912345678", "(11) 91234-5678 "} {
			err := ValidateField(FieldPhone, bad)
			require.Error(t, err, bad)
			assert.Equal(t, "Formato inválido. Use (99) 99999-9999", err.Error())
		}
	})
}

func TestFormValidate(t *testing.T) {
	f := Form{FullName: "Jo", Phone: "(11) 91234-5678"}
	errs := f.Validate()
	assert.Equal(t, FieldErrors{FieldName: validation.MsgNameTooShort}, errs)

	ok := Form{FullName: "João Silva", Phone: "(11) 91234-5678"}
	assert.Empty(t, ok.Validate())
}

func TestFormSanitize(t *testing.T) {
	f := Form{FullName: "  João   Silva ", Phone: " 11912345678 "}
	f.Sanitize()
	assert.Equal(t, "João Silva", f.FullName)
	assert.Equal(t, "(11) 91234-5678", f.Phone)
	assert.Equal(t, NewRegistration{Name: "João Silva", Phone: "(11) 91234-5678"}, f.ToNew())
}

func TestValidationErrorPrefersName(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{FieldName: "a", FieldPhone: "b"}}
	assert.Equal(t, "a", err.Error())
}

func TestCopyText(t *testing.T) {
	r := Registration{Name: "Maria", Phone: "(21) 99876-5432"}
	assert.Equal(t, "Maria - (21) 99876-5432", r.CopyText())
}

func TestNameLongerThanLimitIsRejected(t *testing.T) {
	longName := strings.Repeat("á", 121)

	err := ValidateField(FieldName, longName)
	require.Error(t, err)
	assert.Equal(t, validation.MsgNameTooLong, err.Error())
	assert.NoError(t, ValidateField(FieldName, strings.Repeat("á", 120)))

	f := Form{FullName: longName, Phone: "(11) 91234-5678"}
	f.Sanitize()
	assert.Equal(t, FieldErrors{FieldName: validation.MsgNameTooLong}, f.Validate())

	e := EditForm{Name: longName, Phone: "(11) 91234-5678"}
	e.Sanitize()
	assert.Equal(t, map[string]string{"fullName": validation.MsgNameTooLong}, validation.Fields(e))
}

func TestSanitizeClampsOversizedPhone(t *testing.T) {
	f := Form{FullName: "Ana Souza", Phone: "11912345678" + strings.Repeat("9", 500)}
	f.Sanitize()
	assert.Equal(t, "11912345678"+strings.Repeat("9", 21), f.Phone)
	assert.Equal(t, validation.MsgPhoneFormat, f.Validate()[FieldPhone])
}
