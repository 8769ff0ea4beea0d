// Package scrape finds leads on the open web: it resolves a prompt into page
// URLs (directly, or via web search plus an LLM pass over the results), reads
// each page through Jina AI Reader, and extracts contact details with an LLM.
// A failing page never aborts the run; its URL and reason are reported next to
// whatever the other pages produced.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

const selectSystemPrompt = `You pick web pages worth scraping for business contact details (names, roles, email addresses).

Given search results, respond with ONLY a JSON array of the URLs most likely to list people and their contact information (team pages, about pages, staff directories, practitioner listings). Prefer organization websites over aggregators. Return at most %d URLs. Example: ["https://example.com/team"]`

const extractSystemPrompt = `You extract people and their contact details from web page text.

Respond with ONLY a JSON array. For each person visibly associated with contact details in the text:
{"full_name": "...", "role": "...", "company": "...", "work_email": "...", "personal_emails": [], "phones": [], "country": "", "confidence": <0-100>}

Rules:
- Only include people whose name AND role AND a direct email address appear in the text. Never invent or guess emails.
- Skip shared mailboxes like info@, contact@ or office@ unless they are explicitly attributed to a named person.
- confidence reflects how clearly the email is tied to the person.
- Return [] when the page lists nobody usable.`

// Result is the outcome of one scrape run.
type Result struct {
	Contacts     []model.ContactRecord
	Failures     []model.ItemFailure
	PagesScanned int
}

// Handler runs the web-scrape flow.
type Handler struct {
	jina    jina.Client
	llm     anthropic.Client
	writer  *store.Writer
	cfg     config.ScrapeConfig
	aiCfg   config.AnthropicConfig
	limiter *rate.Limiter
}

// NewHandler builds a scrape handler. writer may be nil in tests.
func NewHandler(jc jina.Client, llm anthropic.Client, writer *store.Writer, cfg config.ScrapeConfig, aiCfg config.AnthropicConfig) *Handler {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 5
	}
	if cfg.ContentCharLimit <= 0 {
		cfg.ContentCharLimit = 18000
	}
	pps := cfg.PagesPerSec
	if pps <= 0 {
		pps = 1
	}
	return &Handler{
		jina:    jc,
		llm:     llm,
		writer:  writer,
		cfg:     cfg,
		aiCfg:   aiCfg,
		limiter: rate.NewLimiter(rate.Limit(pps), 1),
	}
}

// Scrape resolves values (URLs or a free-text topic) into pages and extracts
// leads from each. It fails outright only when no page could be resolved or
// read at all.
func (h *Handler) Scrape(ctx context.Context, values []string) (*Result, error) {
	targets, err := h.resolveTargets(ctx, values)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return &Result{}, nil
	}

	query := strings.TrimSpace(strings.Join(values, " "))

	res := &Result{}
	for _, target := range targets {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scrape: rate limiter")
		}

		contacts, err := h.scrapePage(ctx, target, query)
		res.PagesScanned++
		if err != nil {
			res.Failures = append(res.Failures, model.ItemFailure{Item: target, Reason: err.Error()})
			zap.L().Warn("scrape: page failed", zap.String("url", target), zap.Error(err))
			continue
		}
		res.Contacts = append(res.Contacts, contacts...)
	}

	if len(res.Contacts) == 0 && len(res.Failures) == len(targets) && len(targets) > 0 {
		return nil, eris.Errorf("scrape: all %d pages failed, first: %s", len(targets), res.Failures[0].Reason)
	}

	res.Contacts = model.MergeContacts(nil, res.Contacts)
	if h.writer != nil && len(res.Contacts) > 0 {
		h.writer.Enqueue(res.Contacts)
	}
	zap.L().Info("scrape complete",
		zap.Int("pages", res.PagesScanned),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("failures", len(res.Failures)),
	)
	return res, nil
}

// resolveTargets turns intent values into scrape URLs. Explicit URLs pass
// through; anything else is treated as a search topic, and an LLM picks the
// most promising result pages. If the selection reply cannot be parsed, the
// top raw search results are used instead.
func (h *Handler) resolveTargets(ctx context.Context, values []string) ([]string, error) {
	var targets []string
	var topicParts []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if isURL(v) {
			targets = append(targets, ensureScheme(v))
			continue
		}
		topicParts = append(topicParts, v)
	}
	if len(topicParts) == 0 {
		return targets, nil
	}

	topic := strings.Join(topicParts, " ")
	searchRes, err := h.jina.Search(ctx, topic)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: search %q", topic)
	}
	if len(searchRes.Data) == 0 {
		return targets, nil
	}

	picked := h.selectResultURLs(ctx, topic, searchRes.Data)
	if len(picked) == 0 {
		for i, r := range searchRes.Data {
			if i >= h.cfg.MaxSearchResults {
				break
			}
			picked = append(picked, r.URL)
		}
	}
	return append(targets, picked...), nil
}

func (h *Handler) selectResultURLs(ctx context.Context, topic string, results []jina.SearchResult) []string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\nSearch results:\n", topic)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Description)
	}

	resp, err := h.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     h.aiCfg.ClassifyModel,
		MaxTokens: 1024,
		System:    fmt.Sprintf(selectSystemPrompt, h.cfg.MaxSearchResults),
		Messages:  []anthropic.Message{{Role: "user", Content: sb.String()}},
	})
	if err != nil {
		zap.L().Warn("scrape: result selection failed, using top search hits", zap.Error(err))
		return nil
	}
	resp.Usage.LogUsage(h.aiCfg.ClassifyModel, "scrape_select")

	var urls []string
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(anthropic.ExtractText(resp))), &urls); err != nil {
		zap.L().Warn("scrape: unparseable selection reply, using top search hits", zap.Error(err))
		return nil
	}

	var valid []string
	for _, u := range urls {
		if isURL(u) && len(valid) < h.cfg.MaxSearchResults {
			valid = append(valid, ensureScheme(u))
		}
	}
	return valid
}

func (h *Handler) scrapePage(ctx context.Context, pageURL, query string) ([]model.ContactRecord, error) {
	page, err := h.jina.Read(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "read page")
	}

	content := page.Data.Content
	if len(content) > h.cfg.ContentCharLimit {
		content = content[:h.cfg.ContentCharLimit]
	}
	if strings.TrimSpace(content) == "" {
		return nil, eris.New("page has no readable content")
	}

	resp, err := h.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     h.aiCfg.ExtractModel,
		MaxTokens: 4096,
		System:    extractSystemPrompt,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("URL: %s\nTitle: %s\n\n%s", pageURL, page.Data.Title, content),
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract leads")
	}
	resp.Usage.LogUsage(h.aiCfg.ExtractModel, "scrape_extract")

	var raw []struct {
		FullName       string   `json:"full_name"`
		Role           string   `json:"role"`
		Company        string   `json:"company"`
		WorkEmail      string   `json:"work_email"`
		PersonalEmails []string `json:"personal_emails"`
		Phones         []string `json:"phones"`
		Country        string   `json:"country"`
		Confidence     int      `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(anthropic.ExtractText(resp))), &raw); err != nil {
		return nil, eris.Wrap(err, "unparseable extraction reply")
	}

	var contacts []model.ContactRecord
	for _, lead := range raw {
		email := strings.ToLower(strings.TrimSpace(lead.WorkEmail))
		if lead.FullName == "" || lead.Role == "" {
			continue
		}
		if !model.ValidEmail(email) || model.IsGenericMailbox(email) {
			zap.L().Debug("scrape: dropped lead without usable email",
				zap.String("name", lead.FullName),
				zap.String("email", email),
			)
			continue
		}
		c := model.ContactRecord{
			FullName:        strings.TrimSpace(lead.FullName),
			Role:            strings.TrimSpace(lead.Role),
			Company:         strings.TrimSpace(lead.Company),
			WorkEmail:       email,
			PersonalEmails:  lead.PersonalEmails,
			PhoneNumbers:    lead.Phones,
			Country:         lead.Country,
			Source:          model.SourceAIWebScrape,
			SourceDetails:   pageURL,
			Query:           query,
			ConfidenceScore: lead.Confidence,
		}
		contacts = append(contacts, c.EnsureID())
	}
	return contacts, nil
}

func isURL(s string) bool {
	if strings.Contains(s, " ") {
		return false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		return err == nil && u.Host != ""
	}
	// Bare domains like acme.com/team count as URLs.
	host := s
	if idx := strings.Index(host, "/"); idx > 0 {
		host = host[:idx]
	}
	return strings.Contains(host, ".") && !strings.HasSuffix(host, ".")
}

func ensureScheme(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}
