package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	FromEmail string
	FromName  string
}

// SESNotifier sends rendered emails through Amazon SES v2.
type SESNotifier struct {
	client    sesSender
	templates *Templates
	from      string
}

func NewSESNotifier(ctx context.Context, cfg SESConfig, templates *Templates) (*SESNotifier, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	// fall back to the default chain (env, shared config, role) without static keys
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newSESNotifier(sesv2.NewFromConfig(awsCfg), cfg, templates), nil
}

func newSESNotifier(client sesSender, cfg SESConfig, templates *Templates) *SESNotifier {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &SESNotifier{client: client, templates: templates, from: from}
}

func (n *SESNotifier) SendInvitation(ctx context.Context, in Invitation) error {
	msg, err := n.templates.Invitation(in)
	if err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}
	return n.send(ctx, in.Email, msg, "team_invitation", in.RegistrationID)
}

func (n *SESNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	msg, err := n.templates.RegistrationConfirmation(in)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return n.send(ctx, in.Email, msg, "registration_confirmation", in.RegistrationID)
}

func (n *SESNotifier) send(ctx context.Context, to string, msg Rendered, kind, registrationID string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String(kind)},
			{Name: aws.String("registration_id"), Value: aws.String(registrationID)},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send %s: %w", kind, err)
	}
	return nil
}
