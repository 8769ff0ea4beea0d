package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "prospects.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	full_name       TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	work_email      TEXT UNIQUE,
	personal_emails TEXT NOT NULL DEFAULT '[]',
	phone_numbers   TEXT NOT NULL DEFAULT '[]',
	country         TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT '',
	source_details  TEXT NOT NULL DEFAULT '',
	query           TEXT NOT NULL DEFAULT '',
	confidence      INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_source ON contacts(source);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveContacts(ctx context.Context, contacts []model.ContactRecord) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, c := range contacts {
		c = c.EnsureID()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}

		personalJSON, err := json.Marshal(emptyIfNil(c.PersonalEmails))
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: marshal personal emails")
		}
		phonesJSON, err := json.Marshal(emptyIfNil(c.PhoneNumbers))
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: marshal phone numbers")
		}

		// INSERT OR IGNORE gives upsert-by-email-or-id semantics: any unique
		// key collision (id or work_email) skips the row silently.
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO contacts
			 (id, full_name, role, company, work_email, personal_emails, phone_numbers,
			  country, source, source_details, query, confidence, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.FullName, c.Role, c.Company, nullIfEmpty(c.WorkEmail),
			string(personalJSON), string(phonesJSON), c.Country, string(c.Source),
			c.SourceDetails, c.Query, c.ConfidenceScore, c.CreatedAt,
		)
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: insert contact")
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context) ([]model.ContactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, role, company, work_email, personal_emails, phone_numbers,
		        country, source, source_details, query, confidence, created_at
		 FROM contacts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.ContactRecord
	for rows.Next() {
		var (
			c            model.ContactRecord
			workEmail    sql.NullString
			personalJSON string
			phonesJSON   string
			source       string
		)
		if err := rows.Scan(&c.ID, &c.FullName, &c.Role, &c.Company, &workEmail,
			&personalJSON, &phonesJSON, &c.Country, &source, &c.SourceDetails,
			&c.Query, &c.ConfidenceScore, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		c.WorkEmail = workEmail.String
		c.Source = model.Source(source)
		if err := json.Unmarshal([]byte(personalJSON), &c.PersonalEmails); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal personal emails")
		}
		if err := json.Unmarshal([]byte(phonesJSON), &c.PhoneNumbers); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal phone numbers")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete contact %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
