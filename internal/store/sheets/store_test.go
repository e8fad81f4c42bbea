package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "D", columnLetter(3))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "A", columnLetter(-1))
	assert.Equal(t, "A", columnLetter(26))
}

func TestCellAt(t *testing.T) {
	row := []interface{}{"Acme", "+911234567890", "school"}
	assert.Equal(t, "Acme", cellAt(row, 0))
	assert.Equal(t, "school", cellAt(row, 2))
	assert.Equal(t, "", cellAt(row, 3))
	assert.Equal(t, "", cellAt(row, -1))
}

func TestMatchColumnsLegacyLabels(t *testing.T) {
	name, phone, status := matchColumns([]string{
		"Name of Lead", "Contact number of lead", "Profession", "Status",
	})
	assert.Equal(t, 0, name)
	assert.Equal(t, 1, phone)
	assert.Equal(t, 3, status)
}

func TestMatchColumnsCanonicalHeader(t *testing.T) {
	name, phone, status := matchColumns([]string{
		"Name", "Phone", "Profession", "Status", "Email", "Website", "Address", "Query", "Rating",
	})
	assert.Equal(t, 0, name)
	assert.Equal(t, 1, phone)
	assert.Equal(t, 3, status)
}

func TestMatchColumnsMissing(t *testing.T) {
	name, phone, status := matchColumns([]string{"Foo", "Bar"})
	assert.Equal(t, -1, name)
	assert.Equal(t, -1, phone)
	assert.Equal(t, -1, status)
}
