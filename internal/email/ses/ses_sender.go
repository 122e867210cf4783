package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"mealmail/internal/config"
	"mealmail/internal/domain"
	"mealmail/internal/email"
	"mealmail/internal/port"
)

// SendEmailAPI is the subset of the SES v2 client used by the sender.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client    SendEmailAPI
	from      string
	recipient string
}

// NewSESSender creates a new SES-backed SummarySender.
func NewSESSender(cfg *config.EmailConfig) (port.SummarySender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESSenderWithClient(sesv2.NewFromConfig(awsCfg), cfg), nil
}

// NewSESSenderWithClient creates a sender on top of an existing client.
func NewSESSenderWithClient(client SendEmailAPI, cfg *config.EmailConfig) port.SummarySender {
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &sesSender{client: client, from: from, recipient: cfg.Recipient}
}

func (s *sesSender) SendMealSummary(ctx context.Context, order *domain.EnhancedOrder) error {
	to := email.Recipient(s.recipient, order)
	if to == "" {
		return fmt.Errorf("SES SendEmail: no recipient for order %s", order.ID)
	}

	summary, err := email.RenderSummary(order)
	if err != nil {
		return err
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(summary.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(summary.HTML)},
					Text: &types.Content{Data: aws.String(summary.Text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
