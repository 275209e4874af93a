// Package notify provides transactional email delivery for the VerifyHire API.
package notify

import (
	"context"
	"sync"
)

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	Email   string
	Name    string
	Company string
	Message string
}

// Notifier is an interface for outbound notifications to enable testing
// with fakes. Delivery is best-effort: callers decide whether a failure
// aborts their operation.
type Notifier interface {
	// SendWelcome delivers the waitlist welcome email to the given address.
	SendWelcome(ctx context.Context, email string) error

	// SendContact relays a contact form submission to the team inbox.
	SendContact(ctx context.Context, msg ContactMessage) error
}

// InMemoryNotifier implements Notifier by recording sends in memory.
// Thread-safe; used in tests.
type InMemoryNotifier struct {
	mu       sync.Mutex
	welcomes []string
	contacts []ContactMessage
	failNext error
}

// NewInMemoryNotifier creates a new in-memory notifier.
func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

// FailWith makes all subsequent sends return the given error.
// Pass nil to restore successful sends.
func (n *InMemoryNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failNext = err
}

// SendWelcome records a welcome send.
func (n *InMemoryNotifier) SendWelcome(ctx context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext != nil {
		return n.failNext
	}
	n.welcomes = append(n.welcomes, email)
	return nil
}

// SendContact records a contact relay.
func (n *InMemoryNotifier) SendContact(ctx context.Context, msg ContactMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext != nil {
		return n.failNext
	}
	n.contacts = append(n.contacts, msg)
	return nil
}

// Welcomes returns a copy of the recorded welcome recipients.
func (n *InMemoryNotifier) Welcomes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.welcomes))
	copy(out, n.welcomes)
	return out
}

// Contacts returns a copy of the recorded contact messages.
func (n *InMemoryNotifier) Contacts() []ContactMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ContactMessage, len(n.contacts))
	copy(out, n.contacts)
	return out
}
