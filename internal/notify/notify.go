// Package notify announces issued transmittals and digests on a Slack
// incoming webhook. Delivery is best-effort: failures are logged, never
// returned to the operation that triggered them.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drmeng/vds/internal/config"
	"github.com/drmeng/vds/internal/logging"
	"github.com/drmeng/vds/internal/revision"
	"github.com/hashicorp/go-hclog"
	"github.com/slack-go/slack"
)

// Timeout bounds a single webhook delivery.
const Timeout = 10 * time.Second

// Notifier posts messages to a Slack webhook. A Notifier with an empty
// webhook URL is disabled and drops every message; a nil *Notifier is too.
type Notifier struct {
	url     string
	channel string
	client  *http.Client
	log     hclog.Logger
}

// New returns a Notifier for cfg.
func New(cfg config.NotifyConfig, log hclog.Logger) *Notifier {
	return &Notifier{
		url:     cfg.SlackWebhookURL,
		channel: cfg.Channel,
		client:  &http.Client{Timeout: Timeout},
		log:     logging.OrNull(log),
	}
}

// Enabled reports whether messages will be delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Post delivers text to the webhook.
func (n *Notifier) Post(ctx context.Context, text string) {
	if !n.Enabled() {
		return
	}
	msg := &slack.WebhookMessage{Channel: n.channel, Text: text}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.url, n.client, msg); err != nil {
		n.log.Warn("notify: webhook delivery failed", "error", err)
		return
	}
	n.log.Debug("notify: webhook delivered", "bytes", len(text))
}

// Batch announces the outcome of a batch issuance.
func (n *Notifier) Batch(ctx context.Context, project string, res *revision.BatchResult, numbers map[uint]string) {
	if res == nil || res.Transmittal == nil {
		return
	}
	n.Post(ctx, FormatBatch(project, res, numbers))
}

// FormatBatch renders a batch result as a Slack message. numbers maps
// document IDs to document numbers; IDs missing from it are shown as #id.
func FormatBatch(project string, res *revision.BatchResult, numbers map[uint]string) string {
	name := func(id uint) string {
		if n, ok := numbers[id]; ok {
			return n
		}
		return fmt.Sprintf("#%d", id)
	}

	var b strings.Builder
	tr := res.Transmittal
	fmt.Fprintf(&b, "*%s* issued for %s (source %s, %s)\n",
		tr.Number, project, tr.Source, tr.DateSent.Format("2006-01-02"))
	for _, rev := range res.Revisions {
		fmt.Fprintf(&b, "• %s rev %s\n", name(rev.DocumentID), rev.RevisionNumber)
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(&b, "%d not issued:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "• %s: %v\n", name(f.DocumentID), f.Err)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
