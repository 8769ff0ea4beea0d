package enrich

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/contactout"
)

// fakeContactOut routes each operation to a per-item function so tests can
// script success and failure per input.
type fakeContactOut struct {
	mu             sync.Mutex
	profileCalls   []string
	enrichProfile  func(url string) (*contactout.Profile, error)
	enrichDomain   func(domain string) (*contactout.Company, error)
	searchPeople   func(q contactout.PeopleQuery) ([]contactout.Profile, error)
	searchCompany  func(q contactout.CompanyQuery) ([]contactout.Company, error)
}

func (f *fakeContactOut) EnrichProfile(_ context.Context, url string) (*contactout.Profile, error) {
	f.mu.Lock()
	f.profileCalls = append(f.profileCalls, url)
	f.mu.Unlock()
	return f.enrichProfile(url)
}

func (f *fakeContactOut) EnrichDomain(_ context.Context, domain string) (*contactout.Company, error) {
	return f.enrichDomain(domain)
}

func (f *fakeContactOut) SearchPeople(_ context.Context, q contactout.PeopleQuery) ([]contactout.Profile, error) {
	return f.searchPeople(q)
}

func (f *fakeContactOut) SearchCompanies(_ context.Context, q contactout.CompanyQuery) ([]contactout.Company, error) {
	return f.searchCompany(q)
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, MaxBackoffMs: 1}
}

func TestEnrichProfiles_PartialFailure(t *testing.T) {
	co := &fakeContactOut{
		enrichProfile: func(url string) (*contactout.Profile, error) {
			if url == "https://linkedin.com/in/missing" {
				return nil, &contactout.APIError{StatusCode: 404, Body: "not found"}
			}
			return &contactout.Profile{
				URL:        url,
				FullName:   "jane doe",
				Title:      "CTO",
				Company:    "Acme",
				WorkEmails: []string{"info@acme.com", "jane@acme.com"},
				Confidence: 88,
			}, nil
		},
	}
	h := NewHandler(co, nil, fastRetry(), 0)

	res, err := h.EnrichProfiles(context.Background(), []string{
		"https://linkedin.com/in/jane",
		"https://linkedin.com/in/missing",
	})
	require.NoError(t, err)
	require.Len(t, res.Contacts, 1)
	require.Len(t, res.Failures, 1)

	c := res.Contacts[0]
	assert.Equal(t, "Jane Doe", c.FullName, "lowercase provider names are title-cased")
	assert.Equal(t, "jane@acme.com", c.WorkEmail, "generic mailbox is skipped when a personal work address exists")
	assert.Equal(t, model.SourceContactOutEnrich, c.Source)
	assert.NotEmpty(t, c.ID)

	assert.Equal(t, "https://linkedin.com/in/missing", res.Failures[0].Item)
	assert.Equal(t, "no match found", res.Failures[0].Reason)
}

func TestEnrichProfiles_AllFailedReturnsError(t *testing.T) {
	co := &fakeContactOut{
		enrichProfile: func(string) (*contactout.Profile, error) {
			return nil, &contactout.APIError{StatusCode: 403, Body: "out of credits"}
		},
	}
	h := NewHandler(co, nil, fastRetry(), 0)

	_, err := h.EnrichProfiles(context.Background(), []string{"https://linkedin.com/in/a"})
	require.Error(t, err)
}

func TestEnrichProfiles_Empty(t *testing.T) {
	h := NewHandler(&fakeContactOut{}, nil, fastRetry(), 0)
	res, err := h.EnrichProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Contacts)
	assert.Empty(t, res.Failures)
}

func TestEnrichDomains(t *testing.T) {
	co := &fakeContactOut{
		enrichDomain: func(domain string) (*contactout.Company, error) {
			return &contactout.Company{ID: "co-1", Name: "Acme", Domain: domain, Industry: "Software"}, nil
		},
	}
	h := NewHandler(co, nil, fastRetry(), 0)

	res, err := h.EnrichDomains(context.Background(), []string{"acme.com"})
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "acme.com", res.Companies[0].Domain)
}

func TestSearchPeople_CapsLimit(t *testing.T) {
	var gotLimit int
	co := &fakeContactOut{
		searchPeople: func(q contactout.PeopleQuery) ([]contactout.Profile, error) {
			gotLimit = q.Limit
			return []contactout.Profile{{FullName: "Jane Doe", WorkEmails: []string{"jane@acme.com"}}}, nil
		},
	}
	h := NewHandler(co, nil, fastRetry(), 10)

	res, err := h.SearchPeople(context.Background(), "CTOs in London", 500)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit, "requested count above the configured limit is capped")
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, model.SourceContactOutSearch, res.Contacts[0].Source)
	assert.Equal(t, "CTOs in London", res.Contacts[0].Query)
}

func TestSearchCompanies(t *testing.T) {
	co := &fakeContactOut{
		searchCompany: func(q contactout.CompanyQuery) ([]contactout.Company, error) {
			return []contactout.Company{{Name: "Acme", Domain: "acme.com"}}, nil
		},
	}
	h := NewHandler(co, nil, fastRetry(), 0)

	res, err := h.SearchCompanies(context.Background(), "fintech startups", 5)
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
}

func TestPickWorkEmail(t *testing.T) {
	tests := []struct {
		name   string
		emails []string
		want   string
	}{
		{"prefers non-generic", []string{"info@acme.com", "jane@acme.com"}, "jane@acme.com"},
		{"falls back to generic", []string{"info@acme.com"}, "info@acme.com"},
		{"skips invalid", []string{"not-an-email", "jane@acme.com"}, "jane@acme.com"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickWorkEmail(tt.emails))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Jane Doe", normalizeName("jane doe"))
	assert.Equal(t, "Jane Doe", normalizeName("JANE DOE"))
	assert.Equal(t, "Jane McAllister", normalizeName("Jane McAllister"), "mixed case is left alone")
	assert.Empty(t, normalizeName("  "))
}
