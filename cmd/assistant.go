package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/batch"
	"github.com/sells-group/prospect-cli/internal/dispatch"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/intent"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/scrape"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/contactout"
	"github.com/sells-group/prospect-cli/pkg/jina"
	"github.com/sells-group/prospect-cli/pkg/resend"
)

// assistantEnv bundles everything one assistant session needs, plus the
// handles that must be shut down afterwards.
type assistantEnv struct {
	store      store.Store
	writer     *store.Writer
	dispatcher *dispatch.Dispatcher
}

func (e *assistantEnv) Close() {
	if e.writer != nil {
		e.writer.Close()
	}
	if e.store != nil {
		_ = e.store.Close()
	}
}

// initAssistant wires the dispatcher from config. Sending is optional: with
// no Resend key configured, send_emails reports the missing key instead of
// the whole assistant refusing to start.
func initAssistant(ctx context.Context) (*assistantEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic api key is required (PROSPECT_ANTHROPIC_KEY)")
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	writer := store.NewWriter(st)

	coOpts := []contactout.Option{}
	if cfg.ContactOut.BaseURL != "" {
		coOpts = append(coOpts, contactout.WithBaseURL(cfg.ContactOut.BaseURL))
	}
	if cfg.ContactOut.RequestsPerSec > 0 {
		coOpts = append(coOpts, contactout.WithRateLimit(cfg.ContactOut.RequestsPerSec))
	}
	co, err := contactout.NewClient(cfg.ContactOut.Key, coOpts...)
	if err != nil {
		writer.Close()
		_ = st.Close()
		return nil, err
	}

	jinaOpts := []jina.Option{}
	if cfg.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jc := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	llm := anthropic.NewClient(cfg.Anthropic.Key)

	var sender dispatch.EmailSender
	if cfg.Resend.Key != "" {
		rc, err := resend.NewClient(cfg.Resend.Key)
		if err != nil {
			writer.Close()
			_ = st.Close()
			return nil, err
		}
		sender = outreach.NewSender(rc, cfg.Resend, cfg.Retry, cfg.Outreach.BatchSize)
	} else {
		sender = unavailableSender{}
	}

	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		Classifier: intent.NewClassifier(llm, cfg.Anthropic),
		Enricher:   enrich.NewHandler(co, writer, cfg.Retry, cfg.ContactOut.SearchLimit),
		Scraper:    scrape.NewHandler(jc, llm, writer, cfg.Scrape, cfg.Anthropic),
		Generator:  outreach.NewGenerator(llm, cfg.Anthropic, cfg.Outreach.BatchSize),
		Sender:     sender,
		Progress: func(processed, total int) {
			fmt.Fprintf(os.Stderr, "... %d/%d\n", processed, total)
		},
	})

	return &assistantEnv{store: st, writer: writer, dispatcher: dispatcher}, nil
}

// unavailableSender stands in when no Resend key is configured.
type unavailableSender struct{}

func (unavailableSender) Send(context.Context, []model.ContactRecord, map[string]model.OutreachDraft, batch.ProgressFunc) (*outreach.SendReport, error) {
	return nil, eris.New("email sending is not configured (PROSPECT_RESEND_KEY)")
}
