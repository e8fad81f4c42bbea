// Package phone normalizes raw phone strings into the form used both as the
// dedup key and inside messaging deep links.
package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "IN"

// Clean keeps digits and '+' characters; when more than one '+' survives, all
// are dropped (a stray plus mid-string means the sign carries no meaning).
func Clean(s string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(s) {
		if ch == '+' || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	out := b.String()
	if strings.Count(out, "+") > 1 {
		out = strings.ReplaceAll(out, "+", "")
	}
	return out
}

// Digits returns only the digit characters of s. This is the primary dedup
// key form.
func Digits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// Normalizer renders phone numbers in international form for a default
// region.
type Normalizer struct {
	prefix string
}

// NewNormalizer resolves the calling-code prefix for region via libphonenumber
// metadata. An unknown region falls back to +91, matching the system's
// historical default market.
func NewNormalizer(region string) Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	code := phonenumbers.GetCountryCodeForRegion(region)
	if code == 0 {
		code = 91
	}
	return Normalizer{prefix: "+" + strconv.Itoa(code)}
}

// Normalize cleans raw, strips leading zeros (they break deep links once a
// country code is prepended), and prefixes the region calling code unless the
// number already carries one. Normalize is idempotent.
func (n Normalizer) Normalize(raw string) string {
	cleaned := strings.TrimLeft(Clean(raw), "0")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	return n.prefix + cleaned
}

// Valid reports whether the normalized number carries at least min digits.
func Valid(normalized string, min int) bool {
	return len(Digits(normalized)) >= min
}
