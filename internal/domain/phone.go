package domain

import (
	"regexp"
	"strings"
)

// Nigerian mobile numbers: 0 or (+)234 followed by [789][01] and eight digits.
var phonePattern = regexp.MustCompile(`^(\+?234|0)([789][01]\d{8})$`)

// NormalizePhone returns the locally-dialed 11 digit form (0XXXXXXXXXX).
// Spaces and dashes are ignored.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	m := phonePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", ErrInvalidPhoneFormat
	}
	return "0" + m[2], nil
}

// InternationalPhone converts a canonical local number to +234 form for SMS gateways.
func InternationalPhone(canonical string) string {
	if strings.HasPrefix(canonical, "0") {
		return "+234" + canonical[1:]
	}
	return canonical
}
