// Package enrich turns ContactOut lookups into normalized contact and company
// records. Items in a request fan out concurrently; each item carries its own
// retry budget, and per-item failures are reported alongside the successes
// instead of sinking the whole request.
package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/contactout"
)

// maxConcurrentLookups bounds the fan-out per request so a large paste of
// profile URLs cannot stampede the provider.
const maxConcurrentLookups = 4

// Result aggregates one enrichment request. Failures holds the items that
// could not be resolved, each with the reason, so the dispatcher can report
// exactly what happened instead of a bare count.
type Result struct {
	Contacts  []model.ContactRecord
	Companies []model.CompanyRecord
	Failures  []model.ItemFailure
}

// Handler runs enrichment and search operations against ContactOut.
type Handler struct {
	co          contactout.Client
	writer      *store.Writer
	retry       resilience.RetryConfig
	searchLimit int
}

// NewHandler builds an enrichment handler. writer may be nil in tests; when
// set, successfully resolved contacts are persisted in the background.
func NewHandler(co contactout.Client, writer *store.Writer, retryCfg config.RetryConfig, searchLimit int) *Handler {
	if searchLimit <= 0 {
		searchLimit = 25
	}
	return &Handler{
		co:          co,
		writer:      writer,
		retry:       toRetryConfig(retryCfg),
		searchLimit: searchLimit,
	}
}

func toRetryConfig(cfg config.RetryConfig) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		rc.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	return rc
}

// EnrichProfiles resolves LinkedIn profile URLs into contact records. When
// every item fails the first error is returned so the caller can map the
// provider status; otherwise partial results are returned with Failures set.
func (h *Handler) EnrichProfiles(ctx context.Context, urls []string) (*Result, error) {
	res := &Result{}
	if len(urls) == 0 {
		return res, nil
	}

	retryCfg := h.retry
	retryCfg.OnRetry = resilience.RetryLogger("contactout", "enrich_profile")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	var (
		mu       sync.Mutex
		firstErr error
	)
	for _, u := range urls {
		g.Go(func() error {
			profile, err := resilience.DoVal(gCtx, retryCfg, func(ctx context.Context) (*contactout.Profile, error) {
				return h.co.EnrichProfile(ctx, u)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				res.Failures = append(res.Failures, model.ItemFailure{Item: u, Reason: failureReason(err)})
				zap.L().Warn("enrich: profile lookup failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			res.Contacts = append(res.Contacts, ProfileToContact(*profile, model.SourceContactOutEnrich, u))
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Contacts) == 0 && firstErr != nil {
		return nil, eris.Wrap(firstErr, "enrich: all profile lookups failed")
	}
	h.persist(res.Contacts)
	return res, nil
}

// EnrichDomains resolves company domains into company records.
func (h *Handler) EnrichDomains(ctx context.Context, domains []string) (*Result, error) {
	res := &Result{}
	if len(domains) == 0 {
		return res, nil
	}

	retryCfg := h.retry
	retryCfg.OnRetry = resilience.RetryLogger("contactout", "enrich_domain")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	var (
		mu       sync.Mutex
		firstErr error
	)
	for _, d := range domains {
		g.Go(func() error {
			company, err := resilience.DoVal(gCtx, retryCfg, func(ctx context.Context) (*contactout.Company, error) {
				return h.co.EnrichDomain(ctx, d)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				res.Failures = append(res.Failures, model.ItemFailure{Item: d, Reason: failureReason(err)})
				zap.L().Warn("enrich: domain lookup failed", zap.String("domain", d), zap.Error(err))
				return nil
			}
			res.Companies = append(res.Companies, model.CompanyRecord{
				ID:       company.ID,
				Name:     company.Name,
				Domain:   company.Domain,
				Industry: company.Industry,
				Size:     company.Size,
			})
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Companies) == 0 && firstErr != nil {
		return nil, eris.Wrap(firstErr, "enrich: all domain lookups failed")
	}
	return res, nil
}

// SearchPeople runs a free-text people search. count caps the result size;
// zero falls back to the configured search limit.
func (h *Handler) SearchPeople(ctx context.Context, query string, count int) (*Result, error) {
	limit := count
	if limit <= 0 || limit > h.searchLimit {
		limit = h.searchLimit
	}

	retryCfg := h.retry
	retryCfg.OnRetry = resilience.RetryLogger("contactout", "search_people")

	profiles, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]contactout.Profile, error) {
		return h.co.SearchPeople(ctx, contactout.PeopleQuery{Query: query, Limit: limit})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: people search %q", query)
	}

	res := &Result{}
	for _, p := range profiles {
		res.Contacts = append(res.Contacts, ProfileToContact(p, model.SourceContactOutSearch, query))
	}
	h.persist(res.Contacts)
	return res, nil
}

// SearchCompanies runs a free-text company search.
func (h *Handler) SearchCompanies(ctx context.Context, query string, count int) (*Result, error) {
	limit := count
	if limit <= 0 || limit > h.searchLimit {
		limit = h.searchLimit
	}

	retryCfg := h.retry
	retryCfg.OnRetry = resilience.RetryLogger("contactout", "search_companies")

	companies, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]contactout.Company, error) {
		return h.co.SearchCompanies(ctx, contactout.CompanyQuery{Query: query, Limit: limit})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: company search %q", query)
	}

	res := &Result{}
	for _, c := range companies {
		res.Companies = append(res.Companies, model.CompanyRecord{
			ID:       c.ID,
			Name:     c.Name,
			Domain:   c.Domain,
			Industry: c.Industry,
			Size:     c.Size,
		})
	}
	return res, nil
}

func (h *Handler) persist(contacts []model.ContactRecord) {
	if h.writer == nil || len(contacts) == 0 {
		return
	}
	h.writer.Enqueue(contacts)
}

var nameCaser = cases.Title(language.English, cases.NoLower)

// ProfileToContact normalizes a provider profile into a contact record. The
// first non-generic work email wins; all-caps or all-lowercase names are
// title-cased.
func ProfileToContact(p contactout.Profile, source model.Source, query string) model.ContactRecord {
	c := model.ContactRecord{
		FullName:        normalizeName(p.FullName),
		Role:            p.Title,
		Company:         p.Company,
		WorkEmail:       pickWorkEmail(p.WorkEmails),
		PersonalEmails:  p.PersonalEmails,
		PhoneNumbers:    p.Phones,
		Country:         p.Country,
		Source:          source,
		SourceDetails:   p.URL,
		Query:           query,
		ConfidenceScore: p.Confidence,
	}
	return c.EnsureID()
}

// pickWorkEmail prefers the first address that is not a generic mailbox; if
// every candidate is generic the first one is kept anyway, since a shared
// inbox beats no email at all for enriched records.
func pickWorkEmail(emails []string) string {
	for _, e := range emails {
		e = strings.TrimSpace(strings.ToLower(e))
		if e == "" || !model.ValidEmail(e) {
			continue
		}
		if !model.IsGenericMailbox(e) {
			return e
		}
	}
	for _, e := range emails {
		e = strings.TrimSpace(strings.ToLower(e))
		if model.ValidEmail(e) {
			return e
		}
	}
	return ""
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if name == strings.ToLower(name) || name == strings.ToUpper(name) {
		return nameCaser.String(strings.ToLower(name))
	}
	return name
}

// failureReason flattens an error chain into the short reason stored on an
// ItemFailure.
func failureReason(err error) string {
	switch resilience.StatusCodeOf(err) {
	case 403:
		return "provider rejected the request (out of credits or forbidden)"
	case 404:
		return "no match found"
	}
	if resilience.IsTransient(err) {
		return "provider unavailable after retries"
	}
	return err.Error()
}
