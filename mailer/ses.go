// Package mailer provides an AWS SES implementation of the engine's
// SendEmail hook. The engine core never imports this package; hosts wire
// it in (or bring their own transport).
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/strandauth/secondfactor"
	"github.com/strandauth/secondfactor/logutil"
	"github.com/strandauth/secondfactor/strategies"
)

// sesAPI is the slice of the SES client the mailer uses; tests substitute a
// fake.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SES delivers second-factor emails through AWS SES.
type SES struct {
	client      sesAPI
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewSES loads the ambient AWS configuration for region and builds the
// mailer. baseURL is the host application's public URL used to compose
// sign-in links.
func NewSES(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SES{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// Hook adapts the mailer to the engine's SendEmail signature for a single
// recipient. Hosts typically close over the authenticated user's address
// per request.
func (m *SES) Hook(recipient string) secondfactor.SendEmailFunc {
	return func(ctx context.Context, messageType string, vars map[string]string) error {
		switch messageType {
		case strategies.TypeMagicLink:
			return m.SendMagicLink(ctx, recipient, vars["token"])
		default:
			return fmt.Errorf("no email template for message type %q", messageType)
		}
	}
}

// SendMagicLink delivers a sign-in link carrying the challenge token.
func (m *SES) SendMagicLink(ctx context.Context, recipient, token string) error {
	link := fmt.Sprintf("%s/second-factor/magic-link?token=%s", m.baseURL, url.QueryEscape(token))

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body>
    <p>Use the link below to finish signing in:</p>
    <p><a href="%s">Sign in</a></p>
    <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
    <p>This link can be used once and expires shortly. If you didn't request
    it, you can ignore this email.</p>
</body>
</html>
`, link, link)

	textBody := fmt.Sprintf(`Use the link below to finish signing in:

%s

This link can be used once and expires shortly. If you didn't request it,
you can ignore this email.
`, link)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your sign-in link"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send magic-link email via SES",
			slog.String("email", logutil.SanitizedEmail(recipient)),
			slog.Any("error", err))
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("magic-link email sent",
		slog.String("email", logutil.SanitizedEmail(recipient)),
		slog.String("message_id", aws.ToString(result.MessageId)),
		logutil.Redacted("token"))
	return nil
}
