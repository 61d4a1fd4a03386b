package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	pinpointtypes "github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const (
	originationNumberAttr = "AWS.MM.SMS.OriginationNumber"
	validationCountry     = "US"
)

// Publisher is the part of the SNS client the backend uses.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PhoneValidator is the part of the Pinpoint client the backend uses.
type PhoneValidator interface {
	PhoneNumberValidate(ctx context.Context, in *pinpoint.PhoneNumberValidateInput, optFns ...func(*pinpoint.Options)) (*pinpoint.PhoneNumberValidateOutput, error)
}

type AWSConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// AWSBackend classifies numbers with Pinpoint and delivers with SNS.
type AWSBackend struct {
	publisher Publisher
	validator PhoneValidator
}

func NewAWSBackend(publisher Publisher, validator PhoneValidator) *AWSBackend {
	return &AWSBackend{publisher: publisher, validator: validator}
}

// LoadAWSBackend builds SDK clients from the default credential chain, or
// from static keys when both are supplied.
func LoadAWSBackend(ctx context.Context, cfg AWSConfig) (*AWSBackend, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if strings.TrimSpace(cfg.AccessKey) != "" && strings.TrimSpace(cfg.SecretKey) != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error on loading default config: %w", err)
	}
	return NewAWSBackend(sns.NewFromConfig(awsCfg), pinpoint.NewFromConfig(awsCfg)), nil
}

func (b *AWSBackend) Name() string { return "aws" }

func (b *AWSBackend) Policy() Policy { return Policy{ReportErrors: true} }

func (b *AWSBackend) LookupNumberType(ctx context.Context, number string) (string, error) {
	out, err := b.validator.PhoneNumberValidate(ctx, &pinpoint.PhoneNumberValidateInput{
		NumberValidateRequest: &pinpointtypes.NumberValidateRequest{
			PhoneNumber:    aws.String(number),
			IsoCountryCode: aws.String(validationCountry),
		},
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.NumberValidateResponse == nil {
		return "", nil
	}
	return aws.ToString(out.NumberValidateResponse.PhoneType), nil
}

func (b *AWSBackend) Send(ctx context.Context, msg Message) (bool, error) {
	in := &sns.PublishInput{
		Message:     aws.String(msg.Body),
		PhoneNumber: aws.String(msg.To),
	}
	if msg.From != "" {
		in.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			originationNumberAttr: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.From),
			},
		}
	}

	out, err := b.publisher.Publish(ctx, in)
	if err != nil {
		return false, err
	}
	return out != nil && aws.ToString(out.MessageId) != "", nil
}
