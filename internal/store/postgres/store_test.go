package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillverse/leadgen/internal/leads"
)

func newStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	store, err := NewWithDB(context.Background(), mock, nil)
	require.NoError(t, err)
	return store, mock
}

func TestAppendIfNew(t *testing.T) {
	store, mock := newStore(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("Acme School", "+919876543210", "919876543210",
			"school", "info@acme.in", "https://acme.in", "Pune", "school in Pune", "4.5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := store.AppendIfNew(context.Background(), leads.Lead{
		Name:       "Acme School",
		Phone:      "+919876543210",
		Profession: "school",
		Email:      "info@acme.in",
		Website:    "https://acme.in",
		Address:    "Pune",
		Query:      "school in Pune",
		Rating:     "4.5",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendIfNewDuplicate(t *testing.T) {
	store, mock := newStore(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("Acme School", "+919876543210", "919876543210",
			"", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := store.AppendIfNew(context.Background(), leads.Lead{
		Name:  "Acme School",
		Phone: "+919876543210",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadExisting(t *testing.T) {
	store, mock := newStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"phone_digits", "name"}).
			AddRow("919876543210", "acme school").
			AddRow("", "nameless institute").
			AddRow("911112223334", ""))

	phones, names, err := store.LoadExisting(context.Background())
	require.NoError(t, err)
	assert.Contains(t, phones, "919876543210")
	assert.Contains(t, phones, "911112223334")
	assert.Len(t, phones, 2)
	assert.Contains(t, names, "acme school")
	assert.Contains(t, names, "nameless institute")
	assert.Len(t, names, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRows(t *testing.T) {
	store, mock := newStore(t)
	defer mock.Close()

	cols := []string{"id", "name", "phone", "profession", "status",
		"email", "website", "address", "query", "rating"}
	mock.ExpectQuery("SELECT id, name, phone").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "Acme School", "+919876543210", "school", "Sent",
				"", "", "", "school in Pune", "").
			AddRow(int64(2), "Beta College", "+918887776665", "college", "",
				"", "", "", "college in Pune", ""))

	rows, err := store.ListRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, "Acme School", rows[0].Lead.Name)
	assert.Equal(t, "+919876543210", rows[0].Lead.Phone)
	assert.Equal(t, "school in Pune", rows[0].Lead.Query)
	assert.Equal(t, leads.StatusSent, rows[0].Status)
	assert.Equal(t, "Beta College", rows[1].Lead.Name)
	assert.True(t, rows[1].Status.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	store, mock := newStore(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE leads SET status").
		WithArgs(int64(4), "Sent").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateStatus(context.Background(), 4, leads.StatusSent))
	assert.NoError(t, mock.ExpectationsWereMet())
}
