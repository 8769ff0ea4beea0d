// Package dispatch routes classified prompts to their handlers and turns
// every outcome, including failures, into a user-facing reply. Process never
// returns an error: whatever goes wrong downstream is mapped to friendly text
// so the conversation loop keeps running.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/batch"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/intent"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scrape"
)

// Enricher is the slice of the enrichment handler the dispatcher needs.
type Enricher interface {
	EnrichProfiles(ctx context.Context, urls []string) (*enrich.Result, error)
	EnrichDomains(ctx context.Context, domains []string) (*enrich.Result, error)
	SearchPeople(ctx context.Context, query string, count int) (*enrich.Result, error)
}

// Scraper runs the web-scrape flow.
type Scraper interface {
	Scrape(ctx context.Context, values []string) (*scrape.Result, error)
}

// DraftGenerator drafts outreach copy for prospects.
type DraftGenerator interface {
	Generate(ctx context.Context, prospects []model.ContactRecord, onProgress batch.ProgressFunc) (map[string]model.OutreachDraft, error)
}

// EmailSender delivers drafted emails.
type EmailSender interface {
	Send(ctx context.Context, prospects []model.ContactRecord, drafts map[string]model.OutreachDraft, onProgress batch.ProgressFunc) (*outreach.SendReport, error)
}

// Response is what one processed prompt produces.
type Response struct {
	Text       string
	Contacts   []model.ContactRecord
	Companies  []model.CompanyRecord
	Failures   []model.ItemFailure
	NewRecords int
}

// Session is one user's conversational state: the prospect working set, the
// draft cache for the preview-then-send flow, and the scrape-mode flag. A
// session is not safe for concurrent Process calls.
type Session struct {
	Prospects []model.ContactRecord

	// ScrapeMode forces every non-command prompt through the web-scrape
	// handler regardless of how it classifies.
	ScrapeMode bool

	drafts map[string]model.OutreachDraft
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

func (s *Session) cacheDrafts(d map[string]model.OutreachDraft) { s.drafts = d }

func (s *Session) cachedDrafts() (map[string]model.OutreachDraft, bool) {
	if len(s.drafts) == 0 {
		return nil, false
	}
	return s.drafts, true
}

func (s *Session) invalidateDrafts() { s.drafts = nil }

// addProspects merges records into the working set deduplicating by work
// email, and returns how many were actually new.
func (s *Session) addProspects(records []model.ContactRecord) int {
	before := len(s.Prospects)
	s.Prospects = model.MergeContacts(s.Prospects, records)
	return len(s.Prospects) - before
}

// Dispatcher wires the classifier and the handlers together.
type Dispatcher struct {
	classifier intent.Classifier
	enricher   Enricher
	scraper    Scraper
	generator  DraftGenerator
	sender     EmailSender
	progress   batch.ProgressFunc
}

// Deps collects the dispatcher's collaborators. Progress is optional and
// receives (processed, total) during drafting and sending.
type Deps struct {
	Classifier intent.Classifier
	Enricher   Enricher
	Scraper    Scraper
	Generator  DraftGenerator
	Sender     EmailSender
	Progress   batch.ProgressFunc
}

// NewDispatcher builds a dispatcher from its dependencies.
func NewDispatcher(d Deps) *Dispatcher {
	return &Dispatcher{
		classifier: d.Classifier,
		enricher:   d.Enricher,
		scraper:    d.Scraper,
		generator:  d.Generator,
		sender:     d.Sender,
		progress:   d.Progress,
	}
}

const noEligibleProspectsMsg = "No prospects with valid emails found to send."

// Process handles one prompt against the session. It always produces a
// Response; errors from classification or handlers are translated into
// user-facing text.
func (d *Dispatcher) Process(ctx context.Context, sess *Session, prompt string) *Response {
	it, err := d.classifier.Classify(ctx, prompt)
	if err != nil {
		zap.L().Error("dispatch: classification failed", zap.Error(err))
		if eris.Is(err, intent.ErrMalformedReply) {
			return &Response{Text: "The AI returned a malformed response while reading your prompt, so nothing was done. Please try again."}
		}
		return &Response{Text: "I couldn't work out what you meant by that. Try rephrasing, or type help."}
	}

	// Scrape mode reroutes every non-command prompt, however it classified:
	// the user has told us their prompts are scrape topics, and only
	// operational commands keep their meaning so they can preview and send
	// what the scrapes produced.
	if sess.ScrapeMode && it.Type != model.IntentCommand {
		it = model.Intent{Type: model.IntentWebScrape, Values: []string{prompt}}
	}

	var resp *Response
	switch it.Type {
	case model.IntentEnrichProfile:
		resp = d.handleEnrichProfiles(ctx, sess, it.Values)
	case model.IntentEnrichDomain:
		resp = d.handleEnrichDomains(ctx, it.Values)
	case model.IntentSearch:
		resp = d.handleSearch(ctx, sess, it)
	case model.IntentWebScrape:
		resp = d.handleScrape(ctx, sess, it.Values)
	case model.IntentCommand:
		return d.handleCommand(ctx, sess, it.Command)
	default:
		resp = &Response{Text: "I don't understand that request. Type help to see what I can do."}
	}

	// Anything that is not a send invalidates cached drafts: the working set
	// or the user's intent has moved on since the last preview.
	sess.invalidateDrafts()
	return resp
}

func (d *Dispatcher) handleEnrichProfiles(ctx context.Context, sess *Session, urls []string) *Response {
	res, err := d.enricher.EnrichProfiles(ctx, urls)
	if err != nil {
		return &Response{Text: friendlyProviderError(err, "profile")}
	}
	added := sess.addProspects(res.Contacts)
	return &Response{
		Text:       resultText(len(res.Contacts), added, res.Failures, "contact"),
		Contacts:   res.Contacts,
		Failures:   res.Failures,
		NewRecords: added,
	}
}

func (d *Dispatcher) handleEnrichDomains(ctx context.Context, domains []string) *Response {
	res, err := d.enricher.EnrichDomains(ctx, domains)
	if err != nil {
		return &Response{Text: friendlyProviderError(err, "domain")}
	}
	text := fmt.Sprintf("Found %d compan%s.", len(res.Companies), pluralY(len(res.Companies)))
	if len(res.Failures) > 0 {
		text += "\n" + failureList(res.Failures)
	}
	return &Response{Text: text, Companies: res.Companies, Failures: res.Failures}
}

func (d *Dispatcher) handleSearch(ctx context.Context, sess *Session, it model.Intent) *Response {
	query := strings.Join(it.Values, " ")
	if strings.TrimSpace(query) == "" {
		return &Response{Text: "Tell me who to search for, e.g. \"find 5 CTOs at fintech startups in London\"."}
	}
	res, err := d.enricher.SearchPeople(ctx, query, it.Count)
	if err != nil {
		return &Response{Text: friendlyProviderError(err, "search")}
	}
	added := sess.addProspects(res.Contacts)
	return &Response{
		Text:       resultText(len(res.Contacts), added, res.Failures, "prospect"),
		Contacts:   res.Contacts,
		Failures:   res.Failures,
		NewRecords: added,
	}
}

func (d *Dispatcher) handleScrape(ctx context.Context, sess *Session, values []string) *Response {
	res, err := d.scraper.Scrape(ctx, values)
	if err != nil {
		zap.L().Warn("dispatch: scrape failed", zap.Error(err))
		return &Response{Text: "Scraping failed: " + rootMessage(err)}
	}
	added := sess.addProspects(res.Contacts)
	text := fmt.Sprintf("Scanned %d page(s) and found %d lead(s), %d new.",
		res.PagesScanned, len(res.Contacts), added)
	if len(res.Failures) > 0 {
		text += "\n" + failureList(res.Failures)
	}
	return &Response{
		Text:       text,
		Contacts:   res.Contacts,
		Failures:   res.Failures,
		NewRecords: added,
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, sess *Session, cmd model.CommandName) *Response {
	if !model.KnownCommands[cmd] {
		sess.invalidateDrafts()
		return &Response{Text: fmt.Sprintf("Unknown command %q. Type help to see what I can do.", string(cmd))}
	}

	// Every command except send_emails invalidates the draft cache; preview
	// refills it afterwards.
	if cmd != model.CommandSendEmails {
		sess.invalidateDrafts()
	}

	switch cmd {
	case model.CommandHelp:
		return &Response{Text: helpText}
	case model.CommandShowProspects:
		return d.showProspects(sess)
	case model.CommandCountProspects:
		eligible := len(outreach.Eligible(sess.Prospects))
		return &Response{Text: fmt.Sprintf("You have %d prospect(s), %d with a valid email.",
			len(sess.Prospects), eligible)}
	case model.CommandClearProspects:
		n := len(sess.Prospects)
		sess.Prospects = nil
		return &Response{Text: fmt.Sprintf("Cleared %d prospect(s).", n)}
	case model.CommandPreviewEmails:
		return d.previewEmails(ctx, sess)
	case model.CommandSendEmails:
		return d.sendEmails(ctx, sess)
	}
	return &Response{Text: fmt.Sprintf("Unknown command %q. Type help to see what I can do.", string(cmd))}
}

func (d *Dispatcher) showProspects(sess *Session) *Response {
	if len(sess.Prospects) == 0 {
		return &Response{Text: "No prospects yet. Enrich, search, or scrape to collect some."}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d prospect(s):\n", len(sess.Prospects))
	for i, p := range sess.Prospects {
		email := p.WorkEmail
		if email == "" {
			email = "(no email)"
		}
		fmt.Fprintf(&sb, "%2d. %s — %s, %s — %s\n", i+1, p.FullName, p.Role, p.Company, email)
	}
	return &Response{Text: strings.TrimRight(sb.String(), "\n"), Contacts: sess.Prospects}
}

func (d *Dispatcher) previewEmails(ctx context.Context, sess *Session) *Response {
	eligible := outreach.Eligible(sess.Prospects)
	if len(eligible) == 0 {
		return &Response{Text: "No prospects with valid emails to preview."}
	}

	drafts, err := d.generator.Generate(ctx, eligible, d.progress)
	if err != nil {
		zap.L().Error("dispatch: draft generation failed", zap.Error(err))
		return &Response{Text: "Drafting failed: " + rootMessage(err)}
	}
	sess.cacheDrafts(drafts)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Drafted %d email(s). Send with send_emails.\n\n", len(eligible))
	for _, p := range eligible {
		draft, ok := drafts[p.ID]
		if !ok {
			draft = outreach.FallbackDraft(p)
			sb.WriteString("(fallback copy — no draft was generated for this prospect)\n")
		}
		sb.WriteString(outreach.RenderPreview(draft, p))
		sb.WriteString("\n")
	}
	return &Response{Text: strings.TrimRight(sb.String(), "\n")}
}

func (d *Dispatcher) sendEmails(ctx context.Context, sess *Session) *Response {
	eligible := outreach.Eligible(sess.Prospects)
	if len(eligible) == 0 {
		return &Response{Text: noEligibleProspectsMsg}
	}

	drafts, ok := sess.cachedDrafts()
	if !ok {
		var err error
		drafts, err = d.generator.Generate(ctx, eligible, d.progress)
		if err != nil {
			zap.L().Error("dispatch: draft generation failed", zap.Error(err))
			return &Response{Text: "Drafting failed: " + rootMessage(err)}
		}
	}

	report, err := d.sender.Send(ctx, eligible, drafts, d.progress)
	sess.invalidateDrafts()
	if err != nil {
		zap.L().Error("dispatch: send failed", zap.Error(err))
		return &Response{Text: "Sending failed: " + rootMessage(err)}
	}

	text := report.Summary()
	for _, e := range report.Entries {
		if e.Status == model.DeliveryFailed {
			text += fmt.Sprintf("\n- %s: %s", e.Email, e.Error)
		}
	}
	return &Response{Text: text}
}

const helpText = `I can help you build and work a prospect list:
- Paste LinkedIn profile URLs to enrich them into contacts.
- Name company domains (e.g. "contacts at acme.com") to look companies up.
- Describe people to find ("5 CTOs at fintech startups in London").
- Give me website URLs or a topic to scrape for leads.
Commands: show_prospects, count_prospects, clear_prospects, preview_emails, send_emails, help.`

// friendlyProviderError maps provider failures onto the messages users see.
func friendlyProviderError(err error, what string) string {
	switch resilience.StatusCodeOf(err) {
	case 403:
		return "The enrichment provider refused the request — you may be out of credits."
	case 404:
		switch what {
		case "domain":
			return "No company matched that domain."
		case "search":
			return "No results matched that search."
		default:
			return "No match was found for that profile."
		}
	}
	if resilience.IsTransient(err) {
		return "The enrichment service is temporarily unavailable. Please try again in a moment."
	}
	zap.L().Warn("dispatch: unmapped provider error", zap.Error(err))
	return "Something went wrong talking to the enrichment provider: " + rootMessage(err)
}

func resultText(found, added int, failures []model.ItemFailure, noun string) string {
	text := fmt.Sprintf("Found %d %s(s), %d new.", found, noun, added)
	if len(failures) > 0 {
		text += "\n" + failureList(failures)
	}
	return text
}

func failureList(failures []model.ItemFailure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d item(s) failed:", len(failures))
	for _, f := range failures {
		fmt.Fprintf(&sb, "\n- %s: %s", f.Item, f.Reason)
	}
	return sb.String()
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// rootMessage trims an eris chain down to its innermost message for display.
func rootMessage(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		return msg[idx+2:]
	}
	return msg
}
