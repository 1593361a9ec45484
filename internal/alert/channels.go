package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/coursehub/perfwatch/config"
	"github.com/guonaihong/gout"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// Payload is the channel-agnostic alert body.
type Payload struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Severity  string            `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}

// Channel delivers one alert payload. Implementations must honor the context
// deadline; a slow transport is recorded as failed, never waited out.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, p Payload) error
}

// BuildChannels turns the configured channel list into live channels,
// skipping disabled entries. Unknown types are a configuration error.
func BuildChannels(cfgs []config.ChannelConfig) ([]Channel, error) {
	var out []Channel
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		name := cfg.Name
		if name == "" {
			name = cfg.Type
		}
		switch cfg.Type {
		case "email":
			var ec emailSettings
			if err := mapstructure.Decode(cfg.Settings, &ec); err != nil {
				return nil, errors.Wrapf(err, "channel %s settings", name)
			}
			out = append(out, &EmailChannel{name: name, settings: ec})
		case "webhook":
			var wc webhookSettings
			if err := mapstructure.Decode(cfg.Settings, &wc); err != nil {
				return nil, errors.Wrapf(err, "channel %s settings", name)
			}
			out = append(out, &WebhookChannel{name: name, settings: wc})
		case "chat":
			var cc chatSettings
			if err := mapstructure.Decode(cfg.Settings, &cc); err != nil {
				return nil, errors.Wrapf(err, "channel %s settings", name)
			}
			out = append(out, &ChatChannel{name: name, settings: cc})
		default:
			return nil, errors.Errorf("unknown alert channel type %q", cfg.Type)
		}
	}
	return out, nil
}

type emailSettings struct {
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// EmailChannel sends alerts over SMTP.
type EmailChannel struct {
	name     string
	settings emailSettings
}

func (c *EmailChannel) Name() string { return c.name }

func (c *EmailChannel) Deliver(ctx context.Context, p Payload) error {
	if len(c.settings.To) == 0 {
		return errors.New("email channel has no recipients")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", c.settings.From)
	m.SetHeader("To", c.settings.To...)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", p.Severity, p.Title))
	body := p.Message
	for k, v := range p.Context {
		body += fmt.Sprintf("\n%s: %s", k, v)
	}
	m.SetBody("text/plain", body)

	dialer := gomail.NewDialer(c.settings.SMTPHost, c.settings.SMTPPort, c.settings.Username, c.settings.Password)

	// gomail has no context support; run the dial in a goroutine and let the
	// deadline win the race.
	done := make(chan error, 1)
	go func() { done <- dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return errors.Wrap(err, "smtp send")
	case <-ctx.Done():
		return ctx.Err()
	}
}

type webhookSettings struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// WebhookChannel POSTs the raw payload as JSON to a configured URL.
type WebhookChannel struct {
	name     string
	settings webhookSettings
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Deliver(ctx context.Context, p Payload) error {
	var code int
	df := gout.POST(c.settings.URL).WithContext(ctx).SetJSON(p).Code(&code)
	for k, v := range c.settings.Headers {
		df = df.SetHeader(gout.H{k: v})
	}
	if err := df.Do(); err != nil {
		return errors.Wrap(err, "webhook post")
	}
	if code < 200 || code > 299 {
		return errors.Errorf("webhook returned status %d", code)
	}
	return nil
}

type chatSettings struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

// ChatChannel posts a formatted message to a chat incoming-webhook
// (Mattermost/Slack compatible shape).
type ChatChannel struct {
	name     string
	settings chatSettings
}

func (c *ChatChannel) Name() string { return c.name }

func (c *ChatChannel) Deliver(ctx context.Context, p Payload) error {
	text := fmt.Sprintf("**[%s] %s**\n%s", p.Severity, p.Title, p.Message)
	for k, v := range p.Context {
		text += fmt.Sprintf("\n- %s: %s", k, v)
	}
	body := gout.H{"text": text}
	if c.settings.Channel != "" {
		body["channel"] = c.settings.Channel
	}
	if c.settings.Username != "" {
		body["username"] = c.settings.Username
	}

	var code int
	err := gout.POST(c.settings.WebhookURL).WithContext(ctx).SetJSON(body).Code(&code).Do()
	if err != nil {
		return errors.Wrap(err, "chat post")
	}
	if code < 200 || code > 299 {
		return errors.Errorf("chat webhook returned status %d", code)
	}
	return nil
}
