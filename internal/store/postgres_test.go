package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgres_SaveContacts(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO contacts`).
		WithArgs(pgxmock.AnyArg(), "Jane Doe", "CTO", "Acme", "jane@acme.com",
			`["jane@gmail.com"]`, `[]`, "US", "contactout_enrich", "", "", 90,
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO contacts`).
		WithArgs(pgxmock.AnyArg(), "Dup", "", "", "jane@acme.com",
			`[]`, `[]`, "", "csv_upload", "", "", 0,
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.SaveContacts(context.Background(), []model.ContactRecord{
		{
			FullName:        "Jane Doe",
			Role:            "CTO",
			Company:         "Acme",
			WorkEmail:       "jane@acme.com",
			PersonalEmails:  []string{"jane@gmail.com"},
			Country:         "US",
			Source:          model.SourceContactOutEnrich,
			ConfidenceScore: 90,
		},
		{FullName: "Dup", WorkEmail: "jane@acme.com", Source: model.SourceCSVUpload},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListContacts(t *testing.T) {
	s, mock := newMockPostgres(t)

	now := time.Now().UTC()
	email := "jane@acme.com"
	rows := pgxmock.NewRows([]string{
		"id", "full_name", "role", "company", "work_email", "personal_emails",
		"phone_numbers", "country", "source", "source_details", "query",
		"confidence", "created_at",
	}).AddRow(
		"c-1", "Jane Doe", "CTO", "Acme", &email, []byte(`["jane@gmail.com"]`),
		[]byte(`[]`), "US", "contactout_enrich", "", "ceo acme", 90, now,
	).AddRow(
		"c-2", "No Email", "", "", (*string)(nil), []byte(`[]`),
		[]byte(`[]`), "", "ai_web_scrape", "", "", 0, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM contacts`).WillReturnRows(rows)

	contacts, err := s.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "jane@acme.com", contacts[0].WorkEmail)
	assert.Equal(t, []string{"jane@gmail.com"}, contacts[0].PersonalEmails)
	assert.Equal(t, model.SourceContactOutEnrich, contacts[0].Source)
	assert.Empty(t, contacts[1].WorkEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteContact(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM contacts`).
		WithArgs("c-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.DeleteContact(context.Background(), "c-1"))

	mock.ExpectExec(`DELETE FROM contacts`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, s.DeleteContact(context.Background(), "missing"), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contacts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
