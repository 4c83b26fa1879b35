package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ledgermail/ledgermail/internal/compose"
	"github.com/ledgermail/ledgermail/internal/config"
	mail "github.com/wneessen/go-mail"
)

// SMTPProvider submits mail over an authenticated STARTTLS session. Each
// Send opens its own connection, so independent calls never share session
// state and may run concurrently.
type SMTPProvider struct {
	account *config.Account
}

func NewSMTPProvider(account *config.Account) (*SMTPProvider, error) {
	if account == nil {
		return nil, fmt.Errorf("account is required")
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	return &SMTPProvider{account: account}, nil
}

func (p *SMTPProvider) newClient() (*mail.Client, error) {
	return mail.NewClient(p.account.SMTPServer,
		mail.WithPort(p.account.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.account.SenderEmail),
		mail.WithPassword(p.account.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
}

// Verify dials and authenticates once without sending. Connection or
// authentication failures here mean the run cannot make progress.
func (p *SMTPProvider) Verify(ctx context.Context) error {
	client, err := p.newClient()
	if err != nil {
		return &SendError{Message: "invalid smtp client configuration", Cause: err}
	}

	if err := client.DialWithContext(ctx); err != nil {
		return &SendError{
			Message:   fmt.Sprintf("cannot establish smtp session with %s:%d", p.account.SMTPServer, p.account.SMTPPort),
			Transient: true,
			Cause:     err,
		}
	}
	return client.Close()
}

func (p *SMTPProvider) Send(ctx context.Context, payload *compose.Payload, recipient string) (*Outcome, error) {
	msg, err := p.buildMessage(payload, recipient)
	if err != nil {
		// Address refused by message construction; report it the same
		// way a server-side rejection would be reported.
		return &Outcome{Rejected: map[string]string{recipient: err.Error()}}, nil
	}

	client, err := p.newClient()
	if err != nil {
		return nil, &SendError{Message: "invalid smtp client configuration", Cause: err}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && sendErr.Reason == mail.ErrSMTPRcptTo {
			return &Outcome{Rejected: map[string]string{recipient: sendErr.Error()}}, nil
		}

		transient := false
		if sendErr != nil {
			transient = sendErr.IsTemp()
		}
		return nil, &SendError{Message: "smtp send failed", Transient: transient, Cause: err}
	}

	return &Outcome{}, nil
}

func (p *SMTPProvider) buildMessage(payload *compose.Payload, recipient string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.FromFormat(p.account.SenderName, p.account.SenderEmail); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	// Blind copy to self, so the sender's mailbox keeps every message.
	if err := msg.Bcc(p.account.SenderEmail); err != nil {
		return nil, fmt.Errorf("invalid copy-to-self address: %w", err)
	}

	msg.Subject(payload.Subject)

	contentType := mail.TypeTextPlain
	if payload.HTML {
		contentType = mail.TypeTextHTML
	}
	msg.SetBodyString(contentType, payload.Body)

	for _, attachment := range payload.Attachments {
		if err := msg.AttachReader(attachment.Name, bytes.NewReader(attachment.Data)); err != nil {
			return nil, fmt.Errorf("attaching %q: %w", attachment.Name, err)
		}
	}

	return msg, nil
}
