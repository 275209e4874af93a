package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
)

// welcomeSubject is the subject line of the waitlist welcome email.
const welcomeSubject = "You're on the VerifyHire waitlist"

// ResendNotifier implements Notifier using the Resend transactional email API.
type ResendNotifier struct {
	client       *resend.Client
	from         string
	contactInbox string
}

// NewResendNotifier creates a Resend-backed notifier.
// from is the sender address; contactInbox receives contact form relays.
func NewResendNotifier(apiKey, from, contactInbox string) *ResendNotifier {
	return &ResendNotifier{
		client:       resend.NewClient(apiKey),
		from:         from,
		contactInbox: contactInbox,
	}
}

// SendWelcome delivers the waitlist welcome email.
func (n *ResendNotifier) SendWelcome(ctx context.Context, email string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{email},
		Subject: welcomeSubject,
		Html:    welcomeBody(),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// SendContact relays a contact form submission to the team inbox.
func (n *ResendNotifier) SendContact(ctx context.Context, msg ContactMessage) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.contactInbox},
		ReplyTo: msg.Email,
		Subject: "Contact form: " + msg.Email,
		Html:    contactBody(msg),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to relay contact message: %w", err)
	}
	return nil
}

func welcomeBody() string {
	return `<p>Thanks for joining the VerifyHire waitlist.</p>` +
		`<p>We verify employment history so you don't have to. We'll reach out ` +
		`as soon as your spot opens up. Want to skip the line? You can reserve ` +
		`priority access with a refundable deposit from your confirmation page.</p>` +
		`<p>&mdash; The VerifyHire team</p>`
}

func contactBody(msg ContactMessage) string {
	return fmt.Sprintf(
		`<p><strong>From:</strong> %s (%s)</p><p><strong>Company:</strong> %s</p><p>%s</p>`,
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		html.EscapeString(msg.Company),
		html.EscapeString(msg.Message),
	)
}
