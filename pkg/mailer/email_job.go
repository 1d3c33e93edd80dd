package mailer

import (
	"fmt"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/mailer/templates"
)

// Template names understood by the mail worker.
const (
	TemplateResetPassword = "reset_password"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either set Subject/Text/HTML directly or name a Template and pass its Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Render fills Subject, Text and HTML from the named template. Jobs without
// a template are left as they are.
func (j *EmailJob) Render() error {
	if j.Template == "" {
		if j.Subject == "" || (j.Text == "" && j.HTML == "") {
			return fmt.Errorf("email job to %q has neither template nor body", j.To)
		}
		return nil
	}
	subject, text, html, err := templates.Render(j.Template, j.Data)
	if err != nil {
		return err
	}
	j.Subject, j.Text, j.HTML = subject, text, html
	return nil
}
