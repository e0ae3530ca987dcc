package messaging

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agrilink/agrilink-platform/pkg/logging"
)

var dispatchTracer = otel.Tracer("agrilink.internal.messaging.dispatcher")

// Dispatcher fans a send across multiple provider accounts. It starts from a
// round-robin cursor, walks every account once, and skips to the next account
// on capacity errors only; any other failure aborts and propagates, since a
// bad request or bad credentials will fail the same way everywhere. The
// cursor advances past the account that succeeded so consecutive sends
// spread load.
type Dispatcher struct {
	accounts []Messenger
	names    []string
	logger   *logging.Logger

	mu     sync.Mutex
	cursor int
}

// NewDispatcher builds a dispatcher over ordered accounts. Account order is
// the failover order.
func NewDispatcher(accounts []*TwilioAccount, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, a := range accounts {
		d.accounts = append(d.accounts, a)
		d.names = append(d.names, a.Name)
	}
	return d
}

var _ Messenger = (*Dispatcher)(nil)

func (d *Dispatcher) Send(ctx context.Context, to, body string) (string, error) {
	return d.dispatch(ctx, func(ctx context.Context, m Messenger) (string, error) {
		return m.Send(ctx, to, body)
	}, to)
}

func (d *Dispatcher) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	return d.dispatch(ctx, func(ctx context.Context, m Messenger) (string, error) {
		return m.SendMedia(ctx, to, body, mediaURL)
	}, to)
}

// Accounts reports how many provider accounts are configured.
func (d *Dispatcher) Accounts() int {
	return len(d.accounts)
}

func (d *Dispatcher) dispatch(ctx context.Context, send func(context.Context, Messenger) (string, error), to string) (string, error) {
	if len(d.accounts) == 0 {
		return "", ErrNoAccounts
	}

	ctx, span := dispatchTracer.Start(ctx, "messaging.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("agrilink.to", to))

	d.mu.Lock()
	start := d.cursor
	d.mu.Unlock()

	var failures []AccountFailure
	for i := 0; i < len(d.accounts); i++ {
		idx := (start + i) % len(d.accounts)
		sid, err := send(ctx, d.accounts[idx])
		if err == nil {
			d.mu.Lock()
			d.cursor = (idx + 1) % len(d.accounts)
			d.mu.Unlock()
			span.SetAttributes(attribute.String("agrilink.account", d.names[idx]))
			return sid, nil
		}

		if !IsCapacityError(err) {
			span.RecordError(err)
			d.logger.Error("send failed; aborting failover",
				"account", d.names[idx],
				"error", err,
				"to", to,
			)
			return "", err
		}
		failures = append(failures, AccountFailure{Account: d.names[idx], Err: err})
		d.logger.Warn("account out of capacity; trying next",
			"account", d.names[idx],
			"error", err,
			"to", to,
		)
	}

	exhausted := &ExhaustedError{Failures: failures}
	span.RecordError(exhausted)
	d.logger.Error("all provider accounts exhausted", "to", to, "accounts", len(d.accounts))
	return "", exhausted
}
