package ingest

// Provider identifies which WhatsApp gateway delivered an inbound message.
type Provider string

const (
	ProviderTwilio Provider = "twilio"
	ProviderGreen  Provider = "green"
)

// Envelope is one inbound WhatsApp message, normalized off the provider's
// webhook shape before the pipeline sees it.
type Envelope struct {
	Provider          Provider
	From              string // raw provider address (whatsapp:+91..., 91...@c.us)
	Text              string
	HasMedia          bool
	MediaURL          string
	ProviderMessageID string
	BaseURL           string // externally reachable base for media links
}

// Result is the pipeline's verdict on one envelope. Reply, when non-empty,
// is text the webhook handler should carry back in its HTTP response; sends
// that already went out through a provider leave it empty.
type Result struct {
	Reply  string
	Listed bool
}
