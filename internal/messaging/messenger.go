package messaging

import "context"

// Messenger delivers outbound WhatsApp messages to a farmer or buyer.
// Implementations return the provider message SID on success.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
	SendMedia(ctx context.Context, to, body, mediaURL string) (string, error)
}
