// Package notify delivers operator-facing messages. Every order outcome
// and fatal error goes through here, so the channel doubles as the audit
// trail for operators without log access.
package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Notifier forwards a message to an operator-visible channel. Delivery is
// fire-and-forget: implementations must never surface failures back into
// control flow.
type Notifier interface {
	Notify(text string)
}

// Discord posts timestamped messages to a webhook channel.
type Discord struct {
	webhookURL string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

func NewDiscord(webhookURL string, log zerolog.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// Notify prefixes the message with a wall-clock timestamp and posts it.
// Failures are logged and swallowed.
func (d *Discord) Notify(text string) {
	msg := fmt.Sprintf("[%s] %s", d.now().Format("2006-01-02 15:04:05"), text)
	d.log.Info().Str("message", text).Msg("notify")

	resp, err := d.httpClient.PostForm(d.webhookURL, url.Values{"content": {msg}})
	if err != nil {
		d.log.Warn().Err(err).Msg("discord delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		d.log.Warn().Int("status", resp.StatusCode).Msg("discord rejected message")
	}
}

// Null logs messages without forwarding them anywhere. Used when no
// webhook is configured.
type Null struct {
	Log zerolog.Logger
}

func (n Null) Notify(text string) {
	n.Log.Info().Str("message", text).Msg("notify")
}
