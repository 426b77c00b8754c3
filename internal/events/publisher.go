// Package events publishes classified notification events to the bus that
// fans them out to the verification state machine. Delivery is at least
// once with no ordering guarantee across categories.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "github.com/vtem-rh/payersync-be-test-sub000/internal/common/aws"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// Publisher fans one event out per accepted notification item.
type Publisher interface {
	Publish(ctx context.Context, event models.VerificationEvent) error
}

// SNSPublisher publishes to an SNS topic with the category as a message
// attribute so subscribers can filter by routing category.
type SNSPublisher struct {
	client   *commonaws.SNSClient
	topicARN string
}

func NewSNSPublisher(client *commonaws.SNSClient, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, event models.VerificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Message:  awssdk.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"category": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(event.Category),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	return nil
}
