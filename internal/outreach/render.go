package outreach

import (
	"fmt"
	"html"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// FallbackDraft builds a plain, safe draft for a prospect the generator
// produced no copy for. Callers should flag the fallback to the user so a
// templated email never goes out unnoticed.
func FallbackDraft(c model.ContactRecord) model.OutreachDraft {
	name := firstName(c.FullName)
	company := c.Company
	if company == "" {
		company = "your team"
	}
	return model.OutreachDraft{
		ProspectID: c.ID,
		Subject:    "Quick question for " + company,
		Intro:      fmt.Sprintf("Hi %s, I came across %s and thought it was worth reaching out.", name, company),
		BulletPoints: []string{
			"We help teams like yours find and reach the right prospects.",
			"Setup takes minutes and the first results arrive the same week.",
		},
		Closing: "Would a short call next week be worth your time?",
	}
}

// RenderHTML turns a draft into the outbound email body. All draft fields are
// escaped; the draft is plain text by contract but the model is not trusted.
func RenderHTML(d model.OutreachDraft) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><body>")
	fmt.Fprintf(&sb, "<p>%s</p>", html.EscapeString(d.Intro))
	if len(d.BulletPoints) > 0 {
		sb.WriteString("<ul>")
		for _, bp := range d.BulletPoints {
			fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(bp))
		}
		sb.WriteString("</ul>")
	}
	fmt.Fprintf(&sb, "<p>%s</p>", html.EscapeString(d.Closing))
	sb.WriteString("</body></html>")
	return sb.String()
}

// RenderPreview renders a draft as plain text for terminal display.
func RenderPreview(d model.OutreachDraft, c model.ContactRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s <%s>\n", c.FullName, c.WorkEmail)
	fmt.Fprintf(&sb, "Subject: %s\n\n", d.Subject)
	sb.WriteString(d.Intro + "\n")
	for _, bp := range d.BulletPoints {
		sb.WriteString("  - " + bp + "\n")
	}
	sb.WriteString(d.Closing + "\n")
	return sb.String()
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if idx := strings.IndexByte(full, ' '); idx > 0 {
		return full[:idx]
	}
	return full
}
