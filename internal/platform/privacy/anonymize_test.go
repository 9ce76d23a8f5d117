package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := map[string]string{
		"192.168.1.47":                 "192.168.1.0",
		"2001:db8:85a3::8a2e:370:7334": "2001:0db8:85a3::",
		"":                             "unknown",
		"not-an-ip":                    "invalid",
	}
	for in, want := range tests {
		assert.Equal(t, want, AnonymizeIP(in), in)
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "(11) *****-**78", MaskPhone("(11) 91234-5678"))
	assert.Equal(t, "12", MaskPhone("12"))
	assert.Equal(t, "", MaskPhone(""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@exemplo.org", MaskEmail("admin@exemplo.org"))
	assert.Equal(t, "***", MaskEmail("sem-arroba"))
}
