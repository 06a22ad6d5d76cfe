package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/logger"
)

const whatsAppPrefix = "whatsapp:"

// MessageCreator is the Twilio call used to send a WhatsApp message.
type MessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// NewTwilioMessageCreator builds a REST client for the given credentials.
func NewTwilioMessageCreator(creds TwilioCredentials) MessageCreator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.AccountSID,
		Password: creds.AuthToken,
	})
	return client.Api
}

// TwilioWhatsApp sends the magic link over WhatsApp as a best-effort channel.
type TwilioWhatsApp struct {
	creds         CredentialsProvider
	newCreator    func(TwilioCredentials) MessageCreator
	from          string
	defaultRegion string
	log           *zap.Logger
	now           func() time.Time

	mu      sync.Mutex
	creator MessageCreator
}

// NewTwilioWhatsApp creates the channel. from is the sender number, with or without the
// whatsapp: prefix.
func NewTwilioWhatsApp(creds CredentialsProvider, from, defaultRegion string, log *zap.Logger) *TwilioWhatsApp {
	return &TwilioWhatsApp{
		creds:         creds,
		newCreator:    NewTwilioMessageCreator,
		from:          withWhatsAppPrefix(from),
		defaultRegion: defaultRegion,
		log:           log,
		now:           time.Now,
	}
}

// Attempt implements auth.BestEffortChannel.
func (w *TwilioWhatsApp) Attempt(ctx context.Context, msg auth.Message) error {
	to, err := NormalizePhone(msg.To, w.defaultRegion)
	if err != nil {
		return fmt.Errorf("whatsapp recipient: %w", err)
	}
	body, err := renderWhatsApp(msg, w.now())
	if err != nil {
		return err
	}
	creator, err := w.client(ctx)
	if err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(withWhatsAppPrefix(to))
	params.SetFrom(w.from)
	params.SetBody(body)

	resp, err := creator.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	w.log.Debug("magic link sent over whatsapp", logger.Phone(to), zap.String("sid", sid))
	return nil
}

func (w *TwilioWhatsApp) client(ctx context.Context) (MessageCreator, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.creator != nil {
		return w.creator, nil
	}
	creds, err := w.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	w.creator = w.newCreator(creds)
	return w.creator, nil
}

func withWhatsAppPrefix(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}
