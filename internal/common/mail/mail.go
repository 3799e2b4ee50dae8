// Package mail delivers rendered reminder emails through SES or SMTP.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is a single HTML email with a plain-text alternative.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer sends a message and returns the provider's message ID.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
	Provider() string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient is empty")
	}
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("sender is empty")
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return fmt.Errorf("message body is empty")
	}
	return nil
}

func generateMessageID(to, host string) string {
	local := strings.SplitN(to, "@", 2)[0]
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, local)
	if len(local) > 10 {
		local = local[:10]
	}
	if local == "" {
		local = "user"
	}
	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), local, host)
}
