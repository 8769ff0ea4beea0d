// Package outreach drafts, previews, and sends personalized emails for the
// current prospect working set. Draft copy is generated in chunks so one LLM
// call covers a whole chunk of prospects; sending goes out one recipient at a
// time with per-recipient outcomes retained.
package outreach

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SectorOther is the fallback when no keyword matches.
const SectorOther = "Other"

//go:embed sectors.yaml
var sectorsYAML []byte

type sectorEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

var sectorTable []sectorEntry

func init() {
	var doc struct {
		Sectors []sectorEntry `yaml:"sectors"`
	}
	if err := yaml.Unmarshal(sectorsYAML, &doc); err != nil {
		panic("outreach: invalid embedded sectors.yaml: " + err.Error())
	}
	sectorTable = doc.Sectors
}

// Sectors lists the known sector names, in matching order, plus the fallback.
func Sectors() []string {
	out := make([]string, 0, len(sectorTable)+1)
	for _, s := range sectorTable {
		out = append(out, s.Name)
	}
	return append(out, SectorOther)
}

// CategorizeSector maps a prospect onto a sector by keyword-matching the
// role, company, email domain, and originating query. The first matching
// sector in table order wins.
func CategorizeSector(c model.ContactRecord) string {
	domain := ""
	if at := strings.Index(c.WorkEmail, "@"); at >= 0 {
		domain = c.WorkEmail[at+1:]
	}
	haystack := strings.ToLower(c.Role + " " + c.Company + " " + domain + " " + c.Query)
	for _, s := range sectorTable {
		for _, kw := range s.Keywords {
			if strings.Contains(haystack, kw) {
				return s.Name
			}
		}
	}
	return SectorOther
}
