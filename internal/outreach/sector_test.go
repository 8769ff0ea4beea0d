package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestCategorizeSector(t *testing.T) {
	tests := []struct {
		name    string
		contact model.ContactRecord
		want    string
	}{
		{"role match", model.ContactRecord{Role: "Clinical Psychologist"}, "Psychology"},
		{"psychology beats health", model.ContactRecord{Company: "Mental Health Partners"}, "Psychology"},
		{"company match", model.ContactRecord{Company: "Leeds Physio Clinic"}, "Health"},
		{"query match", model.ContactRecord{Query: "fintech founders in Berlin"}, "Finance"},
		{"email domain match", model.ContactRecord{WorkEmail: "jane@northsideschool.org"}, "Education"},
		{"education", model.ContactRecord{Company: "Northside Academy"}, "Education"},
		{"technology", model.ContactRecord{Role: "Software Engineer"}, "Technology"},
		{"retail", model.ContactRecord{Company: "Harbor E-commerce Ltd"}, "Retail"},
		{"fallback", model.ContactRecord{Role: "Logistics Coordinator", Company: "Freight Co"}, SectorOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeSector(tt.contact))
		})
	}
}

func TestSectors(t *testing.T) {
	got := Sectors()
	assert.Contains(t, got, "Health")
	assert.Equal(t, SectorOther, got[len(got)-1])
}

func TestRenderHTML_EscapesDraftFields(t *testing.T) {
	html := RenderHTML(model.OutreachDraft{
		Intro:        `<script>alert("x")</script>`,
		BulletPoints: []string{"a & b"},
		Closing:      "bye",
	})
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "a &amp; b")
	assert.Contains(t, html, "<p>bye</p>")
}

func TestRenderPreview(t *testing.T) {
	out := RenderPreview(
		model.OutreachDraft{Subject: "Hello", Intro: "Hi Jane", BulletPoints: []string{"one"}, Closing: "Bye"},
		model.ContactRecord{FullName: "Jane Doe", WorkEmail: "jane@acme.com"},
	)
	assert.Contains(t, out, "To: Jane Doe <jane@acme.com>")
	assert.Contains(t, out, "Subject: Hello")
	assert.Contains(t, out, "  - one")
}

func TestFallbackDraft(t *testing.T) {
	d := FallbackDraft(model.ContactRecord{ID: "a", FullName: "Jane Doe", Company: "Acme"})
	assert.Equal(t, "a", d.ProspectID)
	assert.Contains(t, d.Intro, "Jane")
	assert.NotEmpty(t, d.BulletPoints)

	anon := FallbackDraft(model.ContactRecord{ID: "b"})
	assert.Contains(t, anon.Intro, "there")
}
