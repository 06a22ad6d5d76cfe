package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/logger"
)

// SESAPI is the subset of the SES v2 client used by SESMailer.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer delivers magic links by email through Amazon SES.
type SESMailer struct {
	client SESAPI
	from   string
	log    *zap.Logger
	now    func() time.Time
}

func NewSESMailer(client SESAPI, from string, log *zap.Logger) *SESMailer {
	return &SESMailer{client: client, from: from, log: log, now: time.Now}
}

// Deliver implements auth.MandatoryChannel.
func (m *SESMailer) Deliver(ctx context.Context, msg auth.Message) error {
	text, html, err := renderEmail(msg, m.now())
	if err != nil {
		return err
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: utf8(emailSubject),
				Body: &sestypes.Body{
					Text: utf8(text),
					Html: utf8(html),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	m.log.Debug("magic link emailed", logger.Email(msg.To), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

func utf8(s string) *sestypes.Content {
	return &sestypes.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}
