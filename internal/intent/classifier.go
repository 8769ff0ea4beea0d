// Package intent maps free-text prompts onto the assistant's closed set of
// actions. Profile URLs are matched with a regex before any LLM call; the
// model is only consulted for prompts the fast path cannot resolve.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

const classifySystemPrompt = `You classify prompts for a lead-generation assistant into exactly one intent.

Intents:
- "enrich_profile": the prompt contains one or more LinkedIn profile URLs to enrich.
- "enrich_domain": the prompt asks for contacts at one or more company domains (e.g. "find contacts at acme.com").
- "search": the prompt describes people or companies to find (role, industry, location, company size). Extract the search description into values[0] and any requested result count into count.
- "web_scrape": the prompt contains one or more non-LinkedIn website URLs to scrape for leads, or asks to find leads on the web for a topic.
- "command": the prompt is a direct instruction to the assistant itself. Known commands: send_emails, preview_emails, show_prospects, count_prospects, clear_prospects, help. Put the command name in "command". If the instruction looks like a command but matches none of these, still use "command" and put your best-guess snake_case name in "command".
- "unknown": none of the above.

Respond with ONLY a valid JSON object:
{"type": "<intent>", "values": ["..."], "command": "<name or empty>", "count": <number or 0>}

values holds profile URLs for enrich_profile, domains for enrich_domain, the search description for search, and URLs or the topic for web_scrape. Never invent URLs or domains not present in the prompt.`

// profileURLPattern matches LinkedIn profile URLs anywhere in a prompt.
var profileURLPattern = regexp.MustCompile(`(?i)https?://(?:[a-z]{2,3}\.)?linkedin\.com/in/[A-Za-z0-9\-_%.]+`)

// ErrMalformedReply marks a classifier reply that was not valid JSON or fell
// outside the closed intent set. Callers distinguish it from prompts the model
// genuinely could not place.
var ErrMalformedReply = eris.New("malformed classifier reply")

// Classifier resolves a prompt into an Intent.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (model.Intent, error)
}

type classifier struct {
	llm anthropic.Client
	cfg config.AnthropicConfig
}

// NewClassifier builds the default classifier over an LLM client.
func NewClassifier(llm anthropic.Client, cfg config.AnthropicConfig) Classifier {
	return &classifier{llm: llm, cfg: cfg}
}

// Classify maps a prompt onto an intent. LinkedIn profile URLs take precedence
// over everything else: if the prompt contains any, the result is
// enrich_profile without an LLM round trip.
func (c *classifier) Classify(ctx context.Context, prompt string) (model.Intent, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return model.Intent{Type: model.IntentUnknown}, nil
	}

	if urls := profileURLPattern.FindAllString(prompt, -1); len(urls) > 0 {
		zap.L().Debug("intent: profile URLs matched without LLM",
			zap.Int("urls", len(urls)),
		)
		return model.Intent{Type: model.IntentEnrichProfile, Values: urls}, nil
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.ClassifyModel,
		MaxTokens: 512,
		System:    classifySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Prompt: %s", prompt)},
		},
	})
	if err != nil {
		return model.Intent{}, eris.Wrap(err, "intent: classify prompt")
	}
	resp.Usage.LogUsage(c.cfg.ClassifyModel, "classify")

	intent, err := parseIntent(anthropic.ExtractText(resp))
	if err != nil {
		return model.Intent{}, err
	}

	zap.L().Info("intent classified",
		zap.String("type", string(intent.Type)),
		zap.Int("values", len(intent.Values)),
		zap.String("command", string(intent.Command)),
	)
	return intent, nil
}

// parseIntent decodes the classifier's JSON reply. A reply that is not valid
// JSON, or that names a type outside the closed set, is a hard error: it is
// never coerced into unknown, because a silent fallback would mask model or
// prompt regressions.
func parseIntent(text string) (model.Intent, error) {
	cleaned := anthropic.CleanJSON(text)

	var raw struct {
		Type    string   `json:"type"`
		Values  []string `json:"values"`
		Command string   `json:"command"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return model.Intent{}, eris.Wrapf(ErrMalformedReply, "intent: invalid JSON %q: %v", truncate(text, 200), err)
	}

	it := model.IntentType(strings.ToLower(strings.TrimSpace(raw.Type)))
	valid := false
	for _, t := range model.AllIntentTypes() {
		if t == it {
			valid = true
			break
		}
	}
	if !valid {
		return model.Intent{}, eris.Wrapf(ErrMalformedReply, "intent: unrecognized type %q", raw.Type)
	}

	intent := model.Intent{
		Type:   it,
		Values: raw.Values,
		Count:  raw.Count,
	}
	if it == model.IntentCommand {
		intent.Command = model.CommandName(strings.ToLower(strings.TrimSpace(raw.Command)))
		if intent.Command == "" {
			return model.Intent{}, eris.Wrap(ErrMalformedReply, "intent: command intent with empty command name")
		}
	}
	return intent, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
