package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// SESAPI is the slice of the SES v2 client the sender calls.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES transport. ConfigSet is optional and routes
// bounce and delivery events to the named SES configuration set.
type SESConfig struct {
	FromEmail string
	FromName  string
	ConfigSet string
}

// SESSender delivers studio mail through AWS SES.
type SESSender struct {
	api       SESAPI
	from      string
	configSet string
	logger    *logging.Logger
}

// NewSESSender returns nil unless both a client and a from address are given.
func NewSESSender(api SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if api == nil || strings.TrimSpace(cfg.FromEmail) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	name := cfg.FromName
	if name == "" {
		name = defaultFromName
	}
	return &SESSender{
		api:       api,
		from:      (&mail.Address{Name: name, Address: cfg.FromEmail}).String(),
		configSet: cfg.ConfigSet,
		logger:    logger,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.api == nil {
		return fmt.Errorf("notify: SES client not configured")
	}

	out, err := s.api.SendEmail(ctx, s.input(msg))
	if err != nil {
		return fmt.Errorf("notify: SES send to %s: %w", msg.To, err)
	}
	s.logger.Info("email sent via SES",
		"to", msg.To,
		"tag", msg.Tag,
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

func (s *SESSender) input(msg EmailMessage) *sesv2.SendEmailInput {
	body := &types.Body{
		Text: utf8Content(msg.Body),
		Html: utf8Content(msg.HTML),
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{recipient(msg)}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
	}
	if msg.ReplyTo != "" {
		in.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if s.configSet != "" {
		in.ConfigurationSetName = aws.String(s.configSet)
	}
	if tag := sesTagValue(msg.Tag); tag != "" {
		in.EmailTags = []types.MessageTag{{Name: aws.String("event"), Value: aws.String(tag)}}
	}
	return in
}

func recipient(msg EmailMessage) string {
	if msg.ToName == "" {
		return msg.To
	}
	return (&mail.Address{Name: msg.ToName, Address: msg.To}).String()
}

// utf8Content returns nil for empty text so SES omits the part.
func utf8Content(text string) *types.Content {
	if text == "" {
		return nil
	}
	return &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")}
}

// SES tag values allow only ASCII letters, digits, '_' and '-'.
func sesTagValue(tag string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r == '.' || r == ' ':
			return '_'
		default:
			return -1
		}
	}, tag)
}

var _ EmailSender = (*SESSender)(nil)
