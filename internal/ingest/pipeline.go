package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agrilink/agrilink-platform/internal/farmers"
	"github.com/agrilink/agrilink-platform/internal/grading"
	"github.com/agrilink/agrilink-platform/internal/listing"
	"github.com/agrilink/agrilink-platform/internal/media"
	"github.com/agrilink/agrilink-platform/internal/messaging"
	"github.com/agrilink/agrilink-platform/internal/observability/metrics"
	"github.com/agrilink/agrilink-platform/internal/phone"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

var tracer = otel.Tracer("agrilink.internal.ingest")

// Farmer-facing reply texts.
const (
	msgNotRegistered = "Sorry, this number is not registered with AgriLink. Please contact your local coordinator to join as a seller."

	msgPendingApproval = "Your AgriLink registration is still pending approval. We will message you as soon as you can start listing produce."

	msgHelp = "Please send your listing as: Product Quantity\nExample: Tomato 50 kg"

	msgSaveFailed = "Sorry, we could not save your listing right now. Please try again in a few minutes."

	qualityPendingAnalysis = "pending AI analysis"
	qualityNoImage         = "no image provided"
)

func welcomeMessage(name string) string {
	if name == "" {
		name = "farmer"
	}
	return fmt.Sprintf("Welcome to AgriLink, %s! Send your produce as: Product Quantity (example: Tomato 50 kg) with a photo, and buyers will see it right away.", name)
}

func confirmationMessage(productName, quantity, location, quality string) string {
	if location == "" {
		location = "Not specified"
	}
	return fmt.Sprintf("%s (%s) listed successfully!\nQuality: %s\nLocation: %s\nYour produce is now live on the marketplace.",
		productName, quantity, quality, location)
}

// Deps wires the pipeline's collaborators. Listings, Processed, Grader,
// Green, and Metrics may be nil; the pipeline degrades rather than fail.
type Deps struct {
	Farmers      farmers.Repository
	WelcomeGuard *farmers.WelcomeGuard
	Retriever    *media.Retriever
	Listings     *listing.Store
	Grader       *grading.Client
	Twilio       messaging.Messenger
	Green        messaging.Messenger
	Tasks        *Tasks
	Processed    ProcessedMarker
	Metrics      *metrics.MessagingMetrics
	Logger       *logging.Logger
}

// ProcessedMarker records provider message ids so retried webhook deliveries
// are acknowledged without re-listing.
type ProcessedMarker interface {
	MarkProcessed(ctx context.Context, provider, messageID string) (bool, error)
}

// Config carries the pipeline's tunables.
type Config struct {
	DefaultCountryCode string
	FallbackGrade      string
	FallbackScore      int
	DedupEnabled       bool
}

// Pipeline turns one inbound WhatsApp message into a product listing: sender
// validation, one-time welcome, message parsing, media capture, confirmation,
// then persistence and grading off the request path.
type Pipeline struct {
	deps Deps
	cfg  Config
}

func NewPipeline(deps Deps, cfg Config) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = phone.DefaultCountryCode
	}
	if cfg.FallbackGrade == "" {
		cfg.FallbackGrade = "Grade B"
		cfg.FallbackScore = 75
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Process handles one envelope synchronously up to the confirmation, then
// hands persistence and grading to the background tasks. The returned Reply
// is only set when the response body itself must carry the text (Twilio's
// TwiML path).
func (p *Pipeline) Process(ctx context.Context, env Envelope) Result {
	ctx, span := tracer.Start(ctx, "ingest.process")
	defer span.End()
	span.SetAttributes(attribute.String("agrilink.provider", string(env.Provider)))

	if p.cfg.DedupEnabled && p.deps.Processed != nil && env.ProviderMessageID != "" {
		fresh, err := p.deps.Processed.MarkProcessed(ctx, string(env.Provider), env.ProviderMessageID)
		if err != nil {
			p.deps.Logger.Warn("dedup check failed; processing anyway", "error", err)
		} else if !fresh {
			p.deps.Logger.Info("duplicate webhook delivery ignored",
				"provider", env.Provider, "message_id", env.ProviderMessageID)
			p.deps.Metrics.ObserveInbound(string(env.Provider), "duplicate")
			return Result{}
		}
	}

	sender := phone.Normalize(senderAddress(env), p.cfg.DefaultCountryCode)
	if sender == "" {
		p.deps.Logger.Warn("inbound message without usable sender", "provider", env.Provider)
		p.deps.Metrics.ObserveInbound(string(env.Provider), "bad_sender")
		return Result{}
	}

	farmer, err := p.deps.Farmers.GetByPhone(ctx, sender)
	if errors.Is(err, farmers.ErrNotFound) {
		p.deps.Metrics.ObserveInbound(string(env.Provider), "unknown_sender")
		return p.terminalReply(ctx, env, sender, msgNotRegistered)
	}
	if err != nil {
		p.deps.Logger.Error("farmer lookup failed", "error", err, "phone", sender)
		p.deps.Metrics.ObserveInbound(string(env.Provider), "error")
		return p.terminalReply(ctx, env, sender, msgSaveFailed)
	}
	if !farmer.IsActive {
		p.deps.Metrics.ObserveInbound(string(env.Provider), "inactive_sender")
		return p.terminalReply(ctx, env, sender, msgPendingApproval)
	}

	if !farmer.WelcomeSent {
		p.sendWelcome(ctx, env, farmer)
	}

	parsed, err := listing.ParseMessage(env.Text)
	if err != nil {
		p.deps.Metrics.ObserveInbound(string(env.Provider), "unparseable")
		return p.terminalReply(ctx, env, sender, msgHelp)
	}

	imagePath := ""
	quality := qualityNoImage
	if env.HasMedia && p.deps.Retriever != nil {
		if path, ok := p.deps.Retriever.Fetch(ctx, env.MediaURL); ok {
			imagePath = path
			quality = qualityPendingAnalysis
		}
	}

	confirmation := confirmationMessage(parsed.ProductName, parsed.Quantity, farmer.Location, quality)
	res := p.confirm(ctx, env, sender, confirmation)
	res.Listed = true
	p.deps.Metrics.ObserveInbound(string(env.Provider), "listed")

	if p.deps.Listings != nil && p.deps.Tasks != nil {
		rec := listing.Listing{
			FarmerPhone:    sender,
			FarmerName:     farmer.Name,
			FarmerLocation: farmer.Location,
			ProductName:    parsed.ProductName,
			Quantity:       parsed.Quantity,
			ImageURL:       imagePath,
		}
		imageAbs := media.AbsoluteURL(env.BaseURL, imagePath)
		p.deps.Tasks.Enqueue(func(taskCtx context.Context) {
			p.persistAndGrade(taskCtx, env, rec, imageAbs)
		})
	}
	return res
}

// sendWelcome delivers the one-time greeting through the provider API and
// returns so processing continues: a farmer's first listing message still
// lists. The Redis guard narrows the race between concurrent messages; the
// durable flag is only set after the text is on its way.
func (p *Pipeline) sendWelcome(ctx context.Context, env Envelope, farmer *farmers.Farmer) {
	if !p.deps.WelcomeGuard.Acquire(ctx, farmer.Phone) {
		// Another in-flight message is sending the welcome.
		return
	}
	p.deps.Metrics.ObserveInbound(string(env.Provider), "welcome")
	if err := p.sendVia(ctx, env.Provider, farmer.Phone, welcomeMessage(farmer.Name)); err != nil {
		p.deps.Logger.Error("welcome send failed", "error", err, "phone", farmer.Phone)
		p.deps.WelcomeGuard.Release(ctx, farmer.Phone)
		return
	}
	if err := p.deps.Farmers.MarkWelcomeSent(ctx, farmer.Phone); err != nil {
		p.deps.Logger.Error("mark welcome sent failed", "error", err, "phone", farmer.Phone)
	}
}

// terminalReply delivers a message that ends processing. Twilio replies ride
// in the TwiML response; other providers send through their own API.
func (p *Pipeline) terminalReply(ctx context.Context, env Envelope, to, text string) Result {
	if env.Provider == ProviderTwilio {
		return Result{Reply: text}
	}
	if err := p.sendVia(ctx, env.Provider, to, text); err != nil {
		p.deps.Logger.Error("reply send failed", "error", err, "provider", env.Provider, "to", to)
	}
	return Result{}
}

// confirm delivers the listing confirmation. For Twilio it goes out through
// the failover dispatcher so a rate-limited account does not lose the send;
// if every account is exhausted the text falls back into the TwiML response.
func (p *Pipeline) confirm(ctx context.Context, env Envelope, to, text string) Result {
	if env.Provider == ProviderTwilio {
		if err := p.sendVia(ctx, env.Provider, to, text); err != nil {
			p.deps.Logger.Warn("confirmation send failed; embedding in response",
				"error", err, "to", to)
			p.deps.Metrics.ObserveOutbound(string(env.Provider), "failed")
			return Result{Reply: text}
		}
		p.deps.Metrics.ObserveOutbound(string(env.Provider), "sent")
		return Result{}
	}
	if err := p.sendVia(ctx, env.Provider, to, text); err != nil {
		p.deps.Logger.Error("confirmation send failed", "error", err, "provider", env.Provider, "to", to)
		p.deps.Metrics.ObserveOutbound(string(env.Provider), "failed")
		return Result{}
	}
	p.deps.Metrics.ObserveOutbound(string(env.Provider), "sent")
	return Result{}
}

func (p *Pipeline) sendVia(ctx context.Context, provider Provider, to, text string) error {
	m := p.messengerFor(provider)
	if m == nil {
		return fmt.Errorf("ingest: no messenger configured for provider %s", provider)
	}
	_, err := m.Send(ctx, to, text)
	return err
}

func (p *Pipeline) messengerFor(provider Provider) messaging.Messenger {
	switch provider {
	case ProviderGreen:
		if p.deps.Green != nil {
			return p.deps.Green
		}
	case ProviderTwilio:
		if p.deps.Twilio != nil {
			return p.deps.Twilio
		}
	}
	return nil
}

// persistAndGrade runs after the farmer already has a confirmation: it saves
// the listing with a pending grade, then resolves the grade. Listings without
// a photo (or without a grading service) are marked ungraded; the fallback
// grade is applied only when grading genuinely failed, so no listing stays
// pending and no fabricated grade reaches the marketplace.
func (p *Pipeline) persistAndGrade(ctx context.Context, env Envelope, rec listing.Listing, imageAbsURL string) {
	ctx, span := tracer.Start(ctx, "ingest.persist_and_grade")
	defer span.End()

	id, err := p.deps.Listings.Insert(ctx, nil, rec)
	if err != nil {
		p.deps.Logger.Error("listing save failed", "error", err,
			"phone", rec.FarmerPhone, "product", rec.ProductName)
		// Best effort: the farmer already saw a confirmation, so own the failure.
		if sendErr := p.sendVia(ctx, env.Provider, rec.FarmerPhone, msgSaveFailed); sendErr != nil {
			p.deps.Logger.Error("save-failure notice send failed", "error", sendErr, "phone", rec.FarmerPhone)
		}
		return
	}

	var grade string
	var score int
	failed := false
	switch {
	case imageAbsURL == "":
		grade = listing.GradeUngraded
		p.deps.Metrics.ObserveGrading("no_image")
	case !p.deps.Grader.Configured():
		grade = listing.GradeUngraded
		p.deps.Metrics.ObserveGrading("skipped")
	default:
		res, err := p.deps.Grader.Grade(ctx, imageAbsURL, rec.ProductName)
		if err != nil {
			p.deps.Logger.Warn("grading failed; applying fallback grade",
				"error", err, "product", rec.ProductName)
			grade = p.cfg.FallbackGrade
			score = p.cfg.FallbackScore
			failed = true
			p.deps.Metrics.ObserveGrading("fallback")
		} else {
			grade = res.Grade
			score = res.Score
			p.deps.Metrics.ObserveGrading("graded")
		}
	}

	if err := p.deps.Listings.UpdateQuality(ctx, id, grade, score, failed); err != nil {
		p.deps.Logger.Error("quality update failed", "error", err, "listing_id", id)
		return
	}
	p.deps.Logger.Info("listing stored",
		"listing_id", id, "product", rec.ProductName, "grade", grade, "score", score)
}

// senderAddress strips provider address decorations down to raw phone text.
func senderAddress(env Envelope) string {
	switch env.Provider {
	case ProviderGreen:
		return phone.FromChatID(env.From)
	default:
		return phone.StripWhatsApp(env.From)
	}
}
