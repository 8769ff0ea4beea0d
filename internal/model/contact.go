package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tags where a contact record came from.
type Source string

const (
	SourceCSVUpload        Source = "csv_upload"
	SourceContactOutEnrich Source = "contactout_enrich"
	SourceContactOutSearch Source = "contactout_search"
	SourceAIWebScrape      Source = "ai_web_scrape"
	SourceManualTest       Source = "manual_test"
)

// ContactRecord is a single prospect: identity plus whatever contact
// details enrichment produced. Records are immutable once built; updates
// replace the whole record.
type ContactRecord struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name"`
	Role            string    `json:"role"`
	Company         string    `json:"company"`
	WorkEmail       string    `json:"work_email,omitempty"`
	PersonalEmails  []string  `json:"personal_emails"`
	PhoneNumbers    []string  `json:"phone_numbers"`
	Country         string    `json:"country,omitempty"`
	Source          Source    `json:"source"`
	SourceDetails   string    `json:"source_details,omitempty"`
	Query           string    `json:"query,omitempty"`
	ConfidenceScore int       `json:"confidence_score,omitempty"` // 0-100
	CreatedAt       time.Time `json:"created_at"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like an email address. Intentionally
// loose: the providers already validated deliverability upstream.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// HasValidWorkEmail reports whether the record carries a sendable work email.
func (c ContactRecord) HasValidWorkEmail() bool {
	return ValidEmail(c.WorkEmail)
}

// EnsureID assigns a generated id when none is present and returns the record.
func (c ContactRecord) EnsureID() ContactRecord {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return c
}

// genericMailboxPrefixes are role addresses that never identify a person.
var genericMailboxPrefixes = []string{
	"info", "contact", "support", "sales", "hello", "admin",
	"office", "team", "help", "mail", "enquiries", "inquiries",
}

// IsGenericMailbox reports whether email is a role address like info@ or
// contact@ rather than a personal work address.
func IsGenericMailbox(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	local := strings.ToLower(email[:at])
	for _, p := range genericMailboxPrefixes {
		if local == p {
			return true
		}
	}
	return false
}

// MergeContacts appends incoming records to existing, deduplicating by work
// email (case-insensitive) and falling back to id when no email is present.
// The first record seen for a key wins; later duplicates are dropped.
func MergeContacts(existing, incoming []ContactRecord) []ContactRecord {
	seen := make(map[string]bool, len(existing))
	key := func(c ContactRecord) string {
		if c.WorkEmail != "" {
			return "email:" + strings.ToLower(c.WorkEmail)
		}
		return "id:" + c.ID
	}

	out := make([]ContactRecord, 0, len(existing)+len(incoming))
	for _, c := range existing {
		seen[key(c)] = true
		out = append(out, c)
	}
	for _, c := range incoming {
		c = c.EnsureID()
		k := key(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
