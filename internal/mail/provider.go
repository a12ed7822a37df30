package mail

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"dentalflow/internal/config"
)

// NewSender picks the delivery provider named by cfg.MailProvider.
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	from := From{Email: cfg.MailFromEmail, Name: cfg.MailFromName}
	switch cfg.MailProvider {
	case "", "log":
		return LogSender{}, nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("mail: SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, from), nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("mail: load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), from), nil
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.MailProvider)
	}
}
