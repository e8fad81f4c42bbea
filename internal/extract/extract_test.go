package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmails(t *testing.T) {
	text := `Contact us at info@example.org or careers@example.org.
	Duplicate: info@example.org. Not an email: foo@bar.`
	emails := Emails(text)
	require.Len(t, emails, 2)
	assert.Equal(t, []string{"info@example.org", "careers@example.org"}, emails)
}

func TestEmailsEmpty(t *testing.T) {
	assert.Nil(t, Emails(""))
	assert.Nil(t, Emails("no addresses here"))
}

func TestPhones(t *testing.T) {
	text := "Call +91 98765 43210 or 020-2345-6789 today"
	phones := Phones(text)
	require.NotEmpty(t, phones)
	assert.Contains(t, phones[0], "98765")
}

func TestPhonesDeduplicates(t *testing.T) {
	text := "9876543210 ... 9876543210"
	assert.Len(t, Phones(text), 1)
}

func TestClassifierWholeWord(t *testing.T) {
	c := NewClassifier([]string{"ai", "robotics"})
	assert.True(t, c.Relevant("We teach AI and automation"))
	assert.True(t, c.Relevant("Robotics lab open house"))
	// "ai" inside another word must not match.
	assert.False(t, c.Relevant("chairman of maintenance"))
}

func TestClassifierEmptyMatchesEverything(t *testing.T) {
	c := NewClassifier(nil)
	assert.True(t, c.Empty())
	assert.True(t, c.Relevant("anything at all"))
	assert.True(t, c.Relevant(""))
}

func TestClassifierSkipsBlankKeywords(t *testing.T) {
	c := NewClassifier([]string{"", "  ", "python"})
	assert.False(t, c.Empty())
	assert.True(t, c.Relevant("learn Python here"))
	assert.False(t, c.Relevant("learn Java here"))
}

func TestDecisionMakers(t *testing.T) {
	text := "Welcome\nDr. A. Rao, Faculty Advisor\nJ. Singh - President\nplain line\n"
	found := DecisionMakers(text, []string{"Faculty Advisor", "President"})
	require.Len(t, found, 2)
	assert.Equal(t, "Dr. A. Rao, Faculty Advisor", found[0])
}

func TestDecisionMakersSkipsLongLines(t *testing.T) {
	long := strings.Repeat("x", 90) + " President " + strings.Repeat("y", 20)
	require.GreaterOrEqual(t, len(long), 100)
	assert.Empty(t, DecisionMakers(long, []string{"President"}))
}

func TestDecisionMakersCaseInsensitive(t *testing.T) {
	found := DecisionMakers("meet our PRESIDENT today", []string{"President"})
	require.Len(t, found, 1)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Acme Corp", CleanText("  Acme Corp\n"))
	assert.Equal(t, "", CleanText(""))
}
