// Package notifier emits one outward notification per merchant that reaches
// the terminal ONBOARDED status.
package notifier

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
)

// ChangeNotifier observes record status transitions to ONBOARDED. The
// verification state machine guarantees at most one call per record.
type ChangeNotifier interface {
	MerchantOnboarded(ctx context.Context, merchantID string)
}

// SESSender is the slice of the SES wrapper the notifier needs.
type SESSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SESNotifier sends the onboarded notification by email. Send failures are
// logged and swallowed; notification delivery must never fail the
// verification write path.
type SESNotifier struct {
	client  SESSender
	from    string
	to      string
	subject string
	logger  logger.Logger
}

func NewSESNotifier(client SESSender, from, to, subject string, log logger.Logger) *SESNotifier {
	return &SESNotifier{
		client:  client,
		from:    from,
		to:      to,
		subject: subject,
		logger:  log,
	}
}

func (n *SESNotifier) MerchantOnboarded(ctx context.Context, merchantID string) {
	body := fmt.Sprintf("Merchant %s has completed onboarding and can receive and move funds.", merchantID)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{n.to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(n.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Error("failed to send onboarded notification", map[string]interface{}{
			"merchantId": merchantID,
			"error":      err.Error(),
		})
		return
	}

	n.logger.Info("onboarded notification sent", map[string]interface{}{
		"merchantId": merchantID,
	})
}

// NoopNotifier is used when outward notifications are disabled.
type NoopNotifier struct{}

func (NoopNotifier) MerchantOnboarded(ctx context.Context, merchantID string) {}
