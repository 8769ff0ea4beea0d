package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_SaveAndList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	inserted, err := s.SaveContacts(ctx, []model.ContactRecord{
		{
			FullName:       "Jane Doe",
			Role:           "CTO",
			Company:        "Acme",
			WorkEmail:      "jane@acme.com",
			PersonalEmails: []string{"jane@gmail.com"},
			PhoneNumbers:   []string{"+1 555 0100"},
			Source:         model.SourceContactOutEnrich,
		},
		{FullName: "Bob", WorkEmail: "bob@acme.com", Source: model.SourceCSVUpload},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	var jane model.ContactRecord
	for _, c := range contacts {
		if c.WorkEmail == "jane@acme.com" {
			jane = c
		}
	}
	assert.Equal(t, "Jane Doe", jane.FullName)
	assert.Equal(t, []string{"jane@gmail.com"}, jane.PersonalEmails)
	assert.Equal(t, []string{"+1 555 0100"}, jane.PhoneNumbers)
	assert.NotEmpty(t, jane.ID)
	assert.False(t, jane.CreatedAt.IsZero())
}

func TestSQLite_UpsertSkipsDuplicateEmail(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveContacts(ctx, []model.ContactRecord{
		{FullName: "Jane", WorkEmail: "jane@acme.com", Source: model.SourceCSVUpload},
	})
	require.NoError(t, err)

	// Same work email from a different source: silently skipped.
	inserted, err := s.SaveContacts(ctx, []model.ContactRecord{
		{FullName: "Jane Doe", WorkEmail: "jane@acme.com", Source: model.SourceContactOutSearch},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestSQLite_MultipleRecordsWithoutEmail(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	// Empty work emails are stored as NULL so they never collide.
	inserted, err := s.SaveContacts(ctx, []model.ContactRecord{
		{FullName: "A", Source: model.SourceAIWebScrape},
		{FullName: "B", Source: model.SourceAIWebScrape},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestSQLite_DeleteContact(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveContacts(ctx, []model.ContactRecord{
		{ID: "c-1", FullName: "Jane", WorkEmail: "jane@acme.com"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteContact(ctx, "c-1"))
	assert.ErrorIs(t, s.DeleteContact(ctx, "c-1"), ErrNotFound)

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mongodb"})
	require.Error(t, err)
}

func TestOpen_SQLiteDefault(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		DatabaseURL: filepath.Join(t.TempDir(), "x.db"),
	})
	require.NoError(t, err)
	defer s.Close()
}
