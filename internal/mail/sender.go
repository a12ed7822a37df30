package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender delivers a message or returns the provider's reason for not doing so.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// From is the sender identity shared by the providers.
type From struct {
	Email string
	Name  string
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type SendGridSender struct {
	client sendgridAPI
	from   From
}

func NewSendGridSender(apiKey string, from From) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.from.Name, s.from.Email),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		msg.Text,
		"",
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESSender struct {
	client sesAPI
	from   From
}

func NewSESSender(client *sesv2.Client, from From) *SESSender {
	return &SESSender{client: client, from: from}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.from.Name, s.from.Email)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	log.WithFields(log.Fields{"to": msg.To, "message_id": aws.ToString(out.MessageId)}).Debug("email sent via ses")
	return nil
}

// LogSender only logs. It is the default when no provider is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject}).Info("log sender: would send email")
	return nil
}

var (
	_ Sender = (*SendGridSender)(nil)
	_ Sender = (*SESSender)(nil)
	_ Sender = LogSender{}
)
