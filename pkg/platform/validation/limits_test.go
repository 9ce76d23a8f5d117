package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "inclusao/pkg/domain-errors"
)

func TestCheckStringLength(t *testing.T) {
	assert.NoError(t, CheckStringLength("nome", strings.Repeat("á", MaxNameLength), MaxNameLength), "runes, not bytes")

	err := CheckStringLength("nome", strings.Repeat("a", MaxNameLength+1), MaxNameLength)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "nome excede o limite de 120 caracteres", err.Error())
}

func TestCheckAll(t *testing.T) {
	assert.NoError(t, CheckAll(
		Limit{Field: "e-mail", Value: "a@b.c", Max: MaxEmailLength},
		Limit{Field: "senha", Value: "segredo", Max: MaxPasswordLength},
	))

	err := CheckAll(
		Limit{Field: "e-mail", Value: "a@b.c", Max: MaxEmailLength},
		Limit{Field: "senha", Value: strings.Repeat("x", 73), Max: MaxPasswordLength},
	)
	assert.ErrorContains(t, err, "senha")
}
