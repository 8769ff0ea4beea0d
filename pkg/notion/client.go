// Package notion exports contact records into a Notion database so the
// sales team can review prospects outside the CLI.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Client defines the Notion operations used by the export command.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default Notion rate limit (3 req/s).
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a new Notion client with the given integration token.
// By default, API calls are throttled to 3 req/s (Notion's rate limit).
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: rate limit")
		}
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

// ContactPageRequest builds the page-create request for one contact in the
// prospects database. Optional fields are omitted rather than written empty.
func ContactPageRequest(databaseID string, c model.ContactRecord) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: c.FullName}}},
		},
		"Source": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(c.Source)},
		},
	}
	if c.Role != "" {
		props["Role"] = richText(c.Role)
	}
	if c.Company != "" {
		props["Company"] = richText(c.Company)
	}
	if c.WorkEmail != "" {
		props["Work Email"] = notionapi.EmailProperty{Email: c.WorkEmail}
	}
	if c.Country != "" {
		props["Country"] = richText(c.Country)
	}
	if c.SourceDetails != "" {
		props["Details"] = richText(c.SourceDetails)
	}
	if c.ConfidenceScore > 0 {
		score := float64(c.ConfidenceScore)
		props["Confidence"] = notionapi.NumberProperty{Number: score}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
	}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

// ExportContacts writes each contact as a page in the prospects database.
// Failures are collected per contact; the export continues past them.
func ExportContacts(ctx context.Context, client Client, databaseID string, contacts []model.ContactRecord) (int, []model.ItemFailure) {
	var exported int
	var failures []model.ItemFailure
	for _, c := range contacts {
		if _, err := client.CreatePage(ctx, ContactPageRequest(databaseID, c)); err != nil {
			failures = append(failures, model.ItemFailure{
				Item:   fmt.Sprintf("%s <%s>", c.FullName, c.WorkEmail),
				Reason: err.Error(),
			})
			continue
		}
		exported++
	}
	return exported, failures
}
