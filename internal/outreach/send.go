package outreach

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/batch"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/resend"
)

// SendReport is the outcome of one send run: per-recipient log entries plus
// the totals the dispatcher reports back.
type SendReport struct {
	Entries   []model.DeliveryLogEntry
	Sent      int
	Failed    int
	Fallbacks int
}

// Summary renders the report as user-facing text.
func (r *SendReport) Summary() string {
	total := r.Sent + r.Failed
	var s string
	switch {
	case total == 0:
		s = "No emails were sent."
	case r.Failed == 0:
		s = fmt.Sprintf("Sent %d email(s) successfully.", r.Sent)
	case r.Sent == 0:
		s = fmt.Sprintf("All %d email send(s) failed.", r.Failed)
	default:
		s = fmt.Sprintf("Sent %d of %d email(s); %d failed.", r.Sent, total, r.Failed)
	}
	if r.Fallbacks > 0 {
		s += fmt.Sprintf(" Warning: %d email(s) used fallback copy because no draft was generated.", r.Fallbacks)
	}
	return s
}

// Sender delivers drafted emails one recipient at a time.
type Sender struct {
	client    resend.Client
	from      string
	retry     resilience.RetryConfig
	batchSize int
}

// NewSender builds a sender. batchSize only affects progress granularity.
func NewSender(client resend.Client, cfg config.ResendConfig, retryCfg config.RetryConfig, batchSize int) *Sender {
	if batchSize <= 0 {
		batchSize = 10
	}
	rc := resilience.DefaultRetryConfig()
	if retryCfg.MaxAttempts > 0 {
		rc.MaxAttempts = retryCfg.MaxAttempts
	}
	if retryCfg.InitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(retryCfg.InitialBackoffMs) * time.Millisecond
	}
	if retryCfg.MaxBackoffMs > 0 {
		rc.MaxBackoff = time.Duration(retryCfg.MaxBackoffMs) * time.Millisecond
	}
	return &Sender{client: client, from: cfg.From, retry: rc, batchSize: batchSize}
}

// Eligible filters prospects down to those with a sendable work email:
// syntactically valid and not a shared mailbox.
func Eligible(prospects []model.ContactRecord) []model.ContactRecord {
	var out []model.ContactRecord
	for _, p := range prospects {
		if p.HasValidWorkEmail() && !model.IsGenericMailbox(p.WorkEmail) {
			out = append(out, p)
		}
	}
	return out
}

// Send delivers one email per prospect using the supplied drafts. A prospect
// without a draft gets fallback copy and is counted in Fallbacks. A failed
// send is recorded and the run continues; Send itself only errors on context
// cancellation.
func (s *Sender) Send(ctx context.Context, prospects []model.ContactRecord, drafts map[string]model.OutreachDraft, onProgress batch.ProgressFunc) (*SendReport, error) {
	report := &SendReport{}
	if len(prospects) == 0 {
		return report, nil
	}

	entries, err := batch.Process(ctx, prospects, s.batchSize,
		func(ctx context.Context, chunk []model.ContactRecord) ([]model.DeliveryLogEntry, error) {
			out := make([]model.DeliveryLogEntry, 0, len(chunk))
			for _, p := range chunk {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				out = append(out, s.sendOne(ctx, p, drafts, report))
			}
			return out, nil
		},
		onProgress,
	)
	if err != nil {
		return nil, err
	}

	report.Entries = entries
	for _, e := range entries {
		if e.Status == model.DeliverySent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	zap.L().Info("send complete",
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("fallbacks", report.Fallbacks),
	)
	return report, nil
}

func (s *Sender) sendOne(ctx context.Context, p model.ContactRecord, drafts map[string]model.OutreachDraft, report *SendReport) model.DeliveryLogEntry {
	draft, ok := drafts[p.ID]
	if !ok {
		draft = FallbackDraft(p)
		report.Fallbacks++
		zap.L().Warn("outreach: sending fallback copy",
			zap.String("prospect_id", p.ID),
			zap.String("email", p.WorkEmail),
		)
	}

	retryCfg := s.retry
	retryCfg.OnRetry = resilience.RetryLogger("resend", "send")

	entry := model.DeliveryLogEntry{ProspectID: p.ID, Email: p.WorkEmail}
	_, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		return s.client.Send(ctx, resend.Email{
			From:    s.from,
			To:      p.WorkEmail,
			Subject: draft.Subject,
			HTML:    RenderHTML(draft),
		})
	})
	if err != nil {
		entry.Status = model.DeliveryFailed
		entry.Error = err.Error()
		zap.L().Warn("outreach: send failed",
			zap.String("email", p.WorkEmail),
			zap.Error(err),
		)
		return entry
	}
	entry.Status = model.DeliverySent
	return entry
}
