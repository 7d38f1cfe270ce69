// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"pitch-analyzer/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes JSON events to a single topic.
type SNSClient struct {
	client   SNSAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns topic arn is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// NewSNSClientWithAPI wraps an existing client, typically a test double.
func NewSNSClientWithAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

func (s *SNSClient) TopicARN() string {
	return s.topicARN
}

// PublishEvent marshals payload as the message body. Attributes become
// String message attributes so subscribers can filter on them.
func (s *SNSClient) PublishEvent(ctx context.Context, subject string, attributes map[string]string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewEventPublishFailedError(s.topicARN, fmt.Errorf("marshal payload: %w", err))
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			if v == "" {
				continue
			}
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", errors.NewEventPublishFailedError(s.topicARN, err)
	}
	return aws.ToString(out.MessageId), nil
}
