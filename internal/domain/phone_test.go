package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"08012345678":    "08012345678",
		"2348012345678":  "08012345678",
		"+2348012345678": "08012345678",
		"0901 234 5678":  "09012345678",
		"070-1234-5678":  "07012345678",
		" 08112345678 ":  "08112345678",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"0801234567",      // too short
		"080123456789",    // too long
		"06012345678",     // bad network prefix
		"08212345678",     // second digit not 0/1
		"+448012345678",   // foreign
		"08O12345678",     // letter O
		"+23408012345678", // trunk zero after country code
	} {
		_, err := NormalizePhone(in)
		assert.ErrorIs(t, err, ErrInvalidPhoneFormat, in)
	}
}

func TestInternationalPhone(t *testing.T) {
	assert.Equal(t, "+2348012345678", InternationalPhone("08012345678"))
	assert.Equal(t, "+2348012345678", InternationalPhone("+2348012345678"))
}
