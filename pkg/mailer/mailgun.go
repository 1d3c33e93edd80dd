package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const defaultSendTimeout = 10 * time.Second

// Mailgun delivers EmailJobs from a single sending domain.
type Mailgun struct {
	client  *mg.MailgunImpl
	Sender  string
	Timeout time.Duration
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), Sender: sender, Timeout: defaultSendTimeout}
}

// prepare renders jobs that have not been rendered yet and checks the
// recipient.
func prepare(job EmailJob) (EmailJob, error) {
	if job.To == "" {
		return job, errors.New("email job has no recipient")
	}
	if job.Subject == "" || (job.Template != "" && job.Text == "" && job.HTML == "") {
		if err := job.Render(); err != nil {
			return job, err
		}
	}
	return job, nil
}

// Deliver sends job and returns the Mailgun message id. The template name,
// when set, is attached as a Mailgun tag.
func (m *Mailgun) Deliver(ctx context.Context, job EmailJob) (string, error) {
	job, err := prepare(job)
	if err != nil {
		return "", err
	}
	msg := m.client.NewMessage(m.Sender, job.Subject, job.Text, job.To)
	if job.HTML != "" {
		msg.SetHtml(job.HTML)
	}
	if job.Template != "" {
		_ = msg.AddTag(job.Template)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, id, err := m.client.Send(c, msg)
	return id, err
}
