package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/batch"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

const copywriteSystemPrompt = `You write short, specific B2B outreach emails for a lead-generation consultancy.

For EACH prospect in the input, produce one draft. Respond with ONLY a JSON array:
[{"prospect_id": "...", "subject": "...", "intro": "...", "bullet_points": ["...", "..."], "closing": "..."}]

Rules:
- subject under 60 characters, no clickbait.
- intro is 1-2 sentences addressing the person by first name and referencing their role, company, and sector.
- 2-3 bullet_points, each one concrete benefit phrased for their sector.
- closing is one sentence with a soft call to action.
- Plain text only in every field, no HTML, no markdown.
- prospect_id must be copied verbatim from the input. Produce exactly one draft per prospect.`

// Generator drafts outreach copy for prospects, one LLM call per chunk.
type Generator struct {
	llm       anthropic.Client
	aiCfg     config.AnthropicConfig
	batchSize int
}

// NewGenerator builds a draft generator. batchSize caps how many prospects
// share a single LLM call.
func NewGenerator(llm anthropic.Client, aiCfg config.AnthropicConfig, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Generator{llm: llm, aiCfg: aiCfg, batchSize: batchSize}
}

// Generate drafts copy for every prospect and returns the drafts keyed by
// prospect id. Chunks run strictly in order; a failed chunk aborts the run
// with no partial drafts. onProgress (optional) fires after each chunk.
func (g *Generator) Generate(ctx context.Context, prospects []model.ContactRecord, onProgress batch.ProgressFunc) (map[string]model.OutreachDraft, error) {
	drafts, err := batch.Process(ctx, prospects, g.batchSize, g.generateChunk, onProgress)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.OutreachDraft, len(drafts))
	for _, d := range drafts {
		byID[d.ProspectID] = d
	}
	return byID, nil
}

func (g *Generator) generateChunk(ctx context.Context, chunk []model.ContactRecord) ([]model.OutreachDraft, error) {
	var sb strings.Builder
	sb.WriteString("Prospects:\n")
	for _, p := range chunk {
		fmt.Fprintf(&sb, "- id: %s\n  name: %s\n  role: %s\n  company: %s\n  sector: %s\n",
			p.ID, p.FullName, p.Role, p.Company, CategorizeSector(p))
	}

	resp, err := g.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.aiCfg.CopywriteModel,
		MaxTokens: 4096,
		System:    copywriteSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: sb.String()}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "outreach: generate drafts")
	}
	resp.Usage.LogUsage(g.aiCfg.CopywriteModel, "copywrite")

	var drafts []model.OutreachDraft
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(anthropic.ExtractText(resp))), &drafts); err != nil {
		return nil, eris.Wrap(err, "outreach: malformed draft reply")
	}

	// Keep only drafts that name a prospect from this chunk; the model
	// occasionally invents ids or merges entries.
	inChunk := make(map[string]bool, len(chunk))
	for _, p := range chunk {
		inChunk[p.ID] = true
	}
	kept := drafts[:0]
	for _, d := range drafts {
		if !inChunk[d.ProspectID] {
			zap.L().Warn("outreach: dropped draft for unknown prospect id",
				zap.String("prospect_id", d.ProspectID),
			)
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}
