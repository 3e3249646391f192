package models

import (
	"strings"
	"time"
)

// CountryCode records that the device was seen in a country.
type CountryCode struct {
	Code     string    `json:"code"`
	LastSeen time.Time `json:"last_seen"`
}

// NormalizeCode returns code as an upper-case ISO 3166 alpha-2 value, or ""
// when code is not two ASCII letters.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return ""
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return ""
		}
	}
	return code
}
