package notify

import (
	"context"
	"fmt"

	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SESConfig struct {
	Region string `envconfig:"SES_REGION" default:"ap-south-1"`
	Sender string `envconfig:"SES_SENDER"`
}

type SNSConfig struct {
	Region string `envconfig:"SNS_REGION" default:"ap-south-1"`
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SESSender delivers e-mail through Amazon SES.
type SESSender struct {
	client sesAPI
	source string
}

func NewSESSender(ctx context.Context, cfg SESConfig) (*SESSender, error) {
	if cfg.Sender == "" {
		return nil, errx.Config("SES_SENDER not set")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(awsCfg), source: cfg.Sender}, nil
}

func (s *SESSender) SendEmail(ctx context.Context, e Email) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &sestypes.Destination{ToAddresses: []string{e.To}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(e.Body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", errx.WrapUpstream("ses", err)
	}
	id := aws.ToString(out.MessageId)
	logx.Info().Str("message_id", id).Str("to", e.To).Msg("Email sent via SES")
	return id, nil
}

// SNSSender delivers SMS through Amazon SNS direct publish.
type SNSSender struct {
	client snsAPI
}

func NewSNSSender(ctx context.Context, cfg SNSConfig) (*SNSSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSSender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *SNSSender) SendSMS(ctx context.Context, m SMS) (string, error) {
	to := CleanEnv(m.To)
	if to == "" {
		return "", errx.Config("RECIPIENT_PHONE_NUMBER not set")
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(m.Body),
	})
	if err != nil {
		return "", errx.WrapUpstream("sns", err)
	}
	id := aws.ToString(out.MessageId)
	logx.Info().Str("message_id", id).Msg("SMS sent via SNS")
	return id, nil
}

var (
	_ EmailSender = (*SESSender)(nil)
	_ SMSSender   = (*SNSSender)(nil)
)
