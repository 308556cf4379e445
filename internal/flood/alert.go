package flood

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/HeliosCommand/server/internal/agent/graph/parsers"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/HeliosCommand/server/internal/notify"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	alertRequest  = "Assess both reports and reply with the JSON object."
	refineRequest = `Check your findings against both reports once more and reply with the complete JSON object. Set "done" to true when they are final.`
	notConfigured = "not configured"
)

// Reports is the input of the alert stage.
type Reports struct {
	CSV       string
	Web       string
	CSVWeight float64
	WebWeight float64
}

// ChannelResult records the single delivery attempt of one channel.
type ChannelResult struct {
	Attempted bool
	Sent      bool
	MessageID string
	Err       string
}

// Status is the human-readable delivery status used in the outcome summary.
func (c ChannelResult) Status() string {
	switch {
	case c.Sent && c.MessageID != "":
		return "sent (" + c.MessageID + ")"
	case c.Sent:
		return "sent"
	case c.Err != "":
		return "failed: " + c.Err
	case c.Attempted:
		return "failed"
	default:
		return "not sent"
	}
}

// Verdict is what the alert stage decided and did.
type Verdict struct {
	Alerted  bool
	Screened bool
	Steps    int
	Decision *model.AlertDecision
	Findings []model.Finding
	Email    ChannelResult
	SMS      ChannelResult
	Errors   []string
}

// AlertStage classifies the reports with the utility model and dispatches at most one e-mail and one SMS.
type AlertStage struct {
	chat      einomodel.BaseChatModel
	email     notify.EmailSender
	sms       notify.SMSSender
	emailTo   string
	smsTo     string
	maxSteps  int
	threshold model.Severity
	now       func() time.Time
}

// NewAlertStage wires the stage. Either sender may be nil, in which case that channel reports not configured.
func NewAlertStage(chat einomodel.BaseChatModel, email notify.EmailSender, sms notify.SMSSender, cfg Config) *AlertStage {
	return &AlertStage{
		chat:      chat,
		email:     email,
		sms:       sms,
		emailTo:   notify.CleanEnv(cfg.AlertEmail),
		smsTo:     notify.CleanEnv(cfg.AlertPhone),
		maxSteps:  cfg.maxSteps(),
		threshold: cfg.minSeverity(),
		now:       time.Now,
	}
}

// dispatcher holds one once-guard per channel for a single run.
type dispatcher struct {
	stage     *AlertStage
	emailOnce sync.Once
	smsOnce   sync.Once
	email     ChannelResult
	sms       ChannelResult
}

func (d *dispatcher) sendEmail(ctx context.Context, dec *model.AlertDecision, findings []model.Finding) {
	d.emailOnce.Do(func() { d.email = d.stage.deliverEmail(ctx, dec, findings) })
}

func (d *dispatcher) sendSMS(ctx context.Context, dec *model.AlertDecision, findings []model.Finding) {
	d.smsOnce.Do(func() { d.sms = d.stage.deliverSMS(ctx, dec, findings) })
}

// Decide runs the pre-screen and the bounded deliberation loop.
func (a *AlertStage) Decide(ctx context.Context, r Reports) Verdict {
	var v Verdict
	if !HasDangerSignal(r.CSV) && !HasDangerSignal(r.Web) {
		logx.Info().Msg("No danger signals in either report, skipping alert analysis")
		v.Screened = true
		return v
	}

	system, err := prompts.RenderFloodAlert(ctx, prompts.FloodAlertVars{
		CSVReport:    r.CSV,
		WebReport:    r.Web,
		CSVWeightPct: int(r.CSVWeight*100 + 0.5),
		WebWeightPct: int(r.WebWeight*100 + 0.5),
		Now:          a.now().Format("2006-01-02 15:04"),
	})
	if err != nil {
		v.Errors = append(v.Errors, err.Error())
		return v
	}

	msgs := []*schema.Message{schema.SystemMessage(system), schema.UserMessage(alertRequest)}
	d := &dispatcher{stage: a}

	for v.Steps < a.maxSteps {
		if err := ctx.Err(); err != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("alert analysis: %v", err))
			break
		}
		v.Steps++

		out, err := a.chat.Generate(ctx, msgs)
		if err != nil {
			v.Errors = append(v.Errors, errx.WrapUpstream("llm", err).Error())
			break
		}
		if out == nil {
			v.Errors = append(v.Errors, "llm returned no message")
			break
		}
		msgs = append(msgs, schema.AssistantMessage(out.Content, nil))

		dec, err := parsers.ParseAlertDecision(out.Content)
		if err != nil {
			logx.Warn().Err(err).Int("step", v.Steps).Msg("Alert decision rejected")
			v.Errors = append(v.Errors, fmt.Sprintf("step %d: %v", v.Steps, err))
			msgs = append(msgs, schema.UserMessage(fmt.Sprintf(
				"Your previous reply could not be used (%v). Reply again with only the JSON object.", err)))
			continue
		}

		v.Decision = dec
		logx.Info().
			Int("step", v.Steps).
			Int("findings", len(dec.Findings)).
			Str("highest", dec.Highest().String()).
			Bool("done", dec.Done).
			Msg("Alert decision step")

		if dec.Done {
			break
		}
		msgs = append(msgs, schema.UserMessage(refineRequest))
	}

	// Only the settled classification can trigger a send: the one marked done,
	// or the last valid one when the loop ended early.
	if v.Decision != nil {
		if findings := v.Decision.AtLeast(a.threshold); len(findings) > 0 {
			v.Alerted = true
			v.Findings = findings
			d.sendEmail(ctx, v.Decision, findings)
			d.sendSMS(ctx, v.Decision, findings)
		}
	}

	v.Email, v.SMS = d.email, d.sms
	for _, c := range []ChannelResult{v.Email, v.SMS} {
		if c.Err != "" {
			v.Errors = append(v.Errors, c.Err)
		}
	}
	return v
}

func (a *AlertStage) deliverEmail(ctx context.Context, dec *model.AlertDecision, findings []model.Finding) ChannelResult {
	res := ChannelResult{Attempted: true}
	if a.email == nil || !strings.Contains(a.emailTo, "@") {
		logx.Warn().Msg("Flood alert email not configured")
		res.Err = "email " + notConfigured
		return res
	}

	subject := dec.EmailSubject
	if strings.TrimSpace(subject) == "" {
		subject = ComposeSubject(findings)
	}
	body := dec.EmailBody
	if strings.TrimSpace(body) == "" {
		body = ComposeEmailBody(findings, dec.Summary)
	}

	id, err := a.email.SendEmail(ctx, notify.Email{
		To:      a.emailTo,
		Subject: EmailSubject(subject),
		Body:    WrapEmailBody(CleanEmailBody(body), a.now()),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Flood alert email failed")
		res.Err = "email: " + err.Error()
		return res
	}
	logx.Info().Str("message_id", id).Msg("Flood alert email sent")
	res.Sent, res.MessageID = true, id
	return res
}

func (a *AlertStage) deliverSMS(ctx context.Context, dec *model.AlertDecision, findings []model.Finding) ChannelResult {
	res := ChannelResult{Attempted: true}
	if a.sms == nil || a.smsTo == "" {
		logx.Warn().Msg("Flood alert SMS not configured")
		res.Err = "sms " + notConfigured
		return res
	}

	body := dec.SMSBody
	if strings.TrimSpace(body) == "" {
		body = ComposeSMS(findings)
	}

	id, err := a.sms.SendSMS(ctx, notify.SMS{To: a.smsTo, Body: CleanSMS(body)})
	if err != nil {
		logx.Error().Err(err).Msg("Flood alert SMS failed")
		res.Err = "sms: " + err.Error()
		return res
	}
	logx.Info().Str("message_id", id).Msg("Flood alert SMS sent")
	res.Sent, res.MessageID = true, id
	return res
}
