package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "+919876543210", Clean(" +91 98765 43210 "))
	assert.Equal(t, "0209876", Clean("(020) 98-76"))
	// More than one plus drops the sign entirely.
	assert.Equal(t, "911234", Clean("+91+1234"))
	assert.Equal(t, "", Clean("n/a"))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "919876543210", Digits("+91 98765-43210"))
	assert.Equal(t, "", Digits("+"))
}

func TestNormalizeDefaultRegion(t *testing.T) {
	n := NewNormalizer("IN")
	assert.Equal(t, "+919876543210", n.Normalize("98765 43210"))
	assert.Equal(t, "+14155550100", n.Normalize("+1 415 555 0100"))
}

func TestNormalizeStripsLeadingZeros(t *testing.T) {
	n := NewNormalizer("IN")
	// Leading zeros break deep links once the country code is prefixed.
	assert.Equal(t, "+9198765432101", n.Normalize("098765432101"))
	assert.Equal(t, "", n.Normalize("000"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer("IN")
	for _, raw := range []string{"98765 43210", "+1 (415) 555-0100", "0912", ""} {
		once := n.Normalize(raw)
		assert.Equal(t, once, n.Normalize(once), "raw=%q", raw)
	}
}

func TestNormalizerRegions(t *testing.T) {
	assert.Equal(t, "+15550100", NewNormalizer("US").Normalize("5550100"))
	assert.Equal(t, "+445550100", NewNormalizer("gb").Normalize("5550100"))
	assert.Equal(t, "+9715550100", NewNormalizer("AE").Normalize("5550100"))
	// Unknown region falls back to the historical default.
	assert.Equal(t, "+915550100", NewNormalizer("ZZ").Normalize("5550100"))
	assert.Equal(t, "+915550100", NewNormalizer("").Normalize("5550100"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("+919876543210", 5))
	assert.False(t, Valid("+91", 5))
	assert.False(t, Valid("", 5))
}
