package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs, satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	full_name       TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	work_email      TEXT UNIQUE,
	personal_emails JSONB NOT NULL DEFAULT '[]',
	phone_numbers   JSONB NOT NULL DEFAULT '[]',
	country         TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT '',
	source_details  TEXT NOT NULL DEFAULT '',
	query           TEXT NOT NULL DEFAULT '',
	confidence      INT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_source ON contacts(source);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveContacts(ctx context.Context, contacts []model.ContactRecord) (int, error) {
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
			return inserted, eris.Wrap(err, "postgres: marshal personal emails")
		}
		phonesJSON, err := json.Marshal(emptyIfNil(c.PhoneNumbers))
		if err != nil {
			return inserted, eris.Wrap(err, "postgres: marshal phone numbers")
		}

		// ON CONFLICT DO NOTHING covers both unique keys (id, work_email):
		// colliding records are skipped silently, matching upsert semantics.
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO contacts
			 (id, full_name, role, company, work_email, personal_emails, phone_numbers,
			  country, source, source_details, query, confidence, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT DO NOTHING`,
			c.ID, c.FullName, c.Role, c.Company, nullIfEmpty(c.WorkEmail),
			string(personalJSON), string(phonesJSON), c.Country, string(c.Source),
			c.SourceDetails, c.Query, c.ConfidenceScore, c.CreatedAt,
		)
		if err != nil {
			return inserted, eris.Wrap(err, "postgres: insert contact")
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context) ([]model.ContactRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, full_name, role, company, work_email, personal_emails, phone_numbers,
		        country, source, source_details, query, confidence, created_at
		 FROM contacts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.ContactRecord
	for rows.Next() {
		var (
			c            model.ContactRecord
			workEmail    *string
			personalJSON []byte
			phonesJSON   []byte
			source       string
		)
		if err := rows.Scan(&c.ID, &c.FullName, &c.Role, &c.Company, &workEmail,
			&personalJSON, &phonesJSON, &c.Country, &source, &c.SourceDetails,
			&c.Query, &c.ConfidenceScore, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		if workEmail != nil {
			c.WorkEmail = *workEmail
		}
		c.Source = model.Source(source)
		if err := json.Unmarshal(personalJSON, &c.PersonalEmails); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal personal emails")
		}
		if err := json.Unmarshal(phonesJSON, &c.PhoneNumbers); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal phone numbers")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) DeleteContact(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete contact %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
