package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

// Service sends run digests via the configured channels: a JSON webhook,
// an SMTP email, or both.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// webhookPayload is the JSON body posted to the configured webhook.
type webhookPayload struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Discovered    int                  `json:"discovered"`
	Opportunities []models.Opportunity `json:"opportunities"`
}

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Enabled reports whether any delivery channel is configured.
func (s *Service) Enabled() bool {
	return s.config.WebhookURL != "" || s.config.NotificationEmail != ""
}

// SendDigest delivers the digest through every configured channel and
// aggregates per-channel failures into one error.
func (s *Service) SendDigest(opportunities []models.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	var errs []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(opportunities); err != nil {
			logrus.Errorf("Failed to send webhook digest: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent digest to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(opportunities); err != nil {
			logrus.Errorf("Failed to send email digest: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s *Service) sendWebhook(opportunities []models.Opportunity) error {
	payload := webhookPayload{
		GeneratedAt:   time.Now(),
		Discovered:    len(opportunities),
		Opportunities: opportunities,
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post digest: %w", err)
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

var emailTemplate = template.Must(template.New("digest").Parse(`
<h2>{{.Count}} new RFP opportunit{{if eq .Count 1}}y{{else}}ies{{end}} discovered</h2>
<table border="1" cellpadding="6" cellspacing="0">
	<tr><th>Title</th><th>Agency</th><th>Score</th><th>Deadline</th><th>Matched</th></tr>
	{{range .Opportunities}}
	<tr>
		<td>{{.Title}}</td>
		<td>{{.Agency}}</td>
		<td>{{.RelevanceScore}}</td>
		<td>{{if .Deadline}}{{.Deadline.Format "2006-01-02"}}{{else}}-{{end}}</td>
		<td>{{.MatchReason}}</td>
	</tr>
	{{end}}
</table>
`))

func (s *Service) sendEmail(opportunities []models.Opportunity) error {
	var body bytes.Buffer
	err := emailTemplate.Execute(&body, struct {
		Count         int
		Opportunities []models.Opportunity
	}{
		Count:         len(opportunities),
		Opportunities: opportunities,
	})
	if err != nil {
		return fmt.Errorf("failed to render digest email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("RFP Discovery Digest - %d new opportunities", len(opportunities)))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	return nil
}
